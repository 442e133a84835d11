package repository

// Factory describes access to different domain repositories.
type Factory interface {
	OrderIndex() OrderIndexRepository
	MergeGroups() MergeGroupRepository
	Settings() SettingsRepository
	Events() EventRepository
}
