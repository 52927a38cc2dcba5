package userdirectory

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Profile is the minimal public view of a user.
type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func Minimal(user User) Profile {
	return Profile{
		ID:       user.ID,
		Username: user.Username,
	}
}

func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}
