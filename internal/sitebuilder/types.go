package sitebuilder

type createSiteRequest struct {
	TenantHost  string `json:"tenant_host"`
	CompanyName string `json:"company_name"`
}

type createSiteResponse struct {
	JobID string `json:"job_id"`
}

type jobStatusResponse struct {
	Status string `json:"status"`
}
