package port

// SettingsStore is a persisted string key/value store for user preferences.
type SettingsStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	All() (map[string]string, error)
}
