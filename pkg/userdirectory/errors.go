package userdirectory

import "fmt"

type ErrUserNotFound struct {
	id int64
}

func (e ErrUserNotFound) Error() string {
	return fmt.Sprintf("user directory does not contain a user with id %d", e.id)
}

func NewErrUserNotFound(id int64) ErrUserNotFound {
	return ErrUserNotFound{id: id}
}
