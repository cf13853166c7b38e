package storage

import "context"

// ContainerCreator creates a tenant's document-storage container. Only the
// platform-internal object store is provisioned by this process; the other
// storage kinds (SharePoint, Azure Blob, Frappe Drive) are managed by their
// own services.
type ContainerCreator interface {
	CreateContainer(ctx context.Context, name string) error
}
