package engine

// AdminStatusWriter allows writers to receive admin API status updates.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}
