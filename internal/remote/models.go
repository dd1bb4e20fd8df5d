package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// User is the logged_user object returned by the login endpoint. It is
// persisted as-is as the local profile blob.
type User struct {
	AccessToken string     `json:"api_access_token"`
	FullName    string     `json:"full_name"`
	Email       string     `json:"email"`
	UserType    string     `json:"usertype_name"`
	MobilePhone string     `json:"mobile_phone"`
	EmployeeID  FlexString `json:"employee_id"`
}

type apiResponse struct {
	Status     string `json:"apiexec_status"`
	Message    string `json:"usr_msg"`
	LoggedUser *User  `json:"logged_user"`
}

type remoteLocation struct {
	ID           FlexString `json:"id"`
	LocationName string     `json:"locationName"`
	Timestamp    time.Time  `json:"timestamp"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	Accuracy     *float64   `json:"accuracy"`
}

// FlexString accepts both JSON strings and numbers; the API is not
// consistent about numeric identifiers.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}
