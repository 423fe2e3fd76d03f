package port

type FileSystem interface {
	Size(path string) (int64, error)
	Exists(path string) bool
}
