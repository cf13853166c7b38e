package request

type CreateSite struct {
	CompanyName      string `json:"company_name" validate:"required,max=140"`
	Alias            string `json:"alias" validate:"omitempty,max=32,sitename"`
	OwnerUserID      string `json:"owner_user_id" validate:"required"`
	OwnerEmail       string `json:"owner_email" validate:"required,email"`
	Currency         string `json:"currency" validate:"omitempty,len=3"`
	Domain           string `json:"domain" validate:"omitempty,fqdn"`
	Country          string `json:"country"`
	TenantExternalID string `json:"tenant_external_id"`
	StorageKind      string `json:"storage_kind" validate:"omitempty,oneof=internal sharepoint azure_blob frappe_drive"`
}

type CreateInvitation struct {
	Email      string `json:"email" validate:"required,email"`
	TenantHost string `json:"tenant_host" validate:"required,fqdn"`
	InvitedBy  string `json:"invited_by"`
}
