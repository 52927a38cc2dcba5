package locker

import "fmt"

type ErrLockNotObtained struct {
	key string
}

func (e ErrLockNotObtained) Error() string {
	return fmt.Sprintf("lock '%s' could not be obtained in time", e.key)
}

func NewErrLockNotObtained(key string) ErrLockNotObtained {
	return ErrLockNotObtained{key: key}
}
