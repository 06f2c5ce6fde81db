package repository

import "os"

// FileOption applies a configuration option to the FileStore.
type FileOption func(*FileStore)

// WithFileMode sets the permissions of written asset files.
func WithFileMode(mode os.FileMode) FileOption {
	return func(s *FileStore) {
		if mode != 0 {
			s.mode = mode
		}
	}
}

// GDataOption applies a configuration option to the GDataStore.
type GDataOption func(*GDataStore)

// WithObjectKey sets the gdata object holding the assets.
func WithObjectKey(key string) GDataOption {
	return func(s *GDataStore) {
		if key != "" {
			s.object = key
		}
	}
}
