package auth

import "github.com/carenest/patient-portal/internal/careapi"

// State is the patient's authentication state as exposed to the UI. The
// functions below are its only transitions; each returns a new value.
type State struct {
	User          *careapi.User `json:"user"`
	Token         string        `json:"token,omitempty"`
	Authenticated bool          `json:"authenticated"`
	Loading       bool          `json:"loading"`
	Error         string        `json:"error,omitempty"`
}

// LoginStarted marks a login attempt in flight and clears the last error.
func LoginStarted(s State) State {
	s.Loading = true
	s.Error = ""
	return s
}

// LoginSucceeded stores the session.
func LoginSucceeded(_ State, session careapi.Session) State {
	user := session.User
	return State{
		User:          &user,
		Token:         session.Token,
		Authenticated: true,
	}
}

// LoginFailed resets the session and records the error message.
func LoginFailed(_ State, message string) State {
	return State{Error: message}
}

// Logout drops every trace of the session.
func Logout(State) State {
	return State{}
}

// UserUpdated replaces the profile of an authenticated session.
func UserUpdated(s State, user careapi.User) State {
	if !s.Authenticated {
		return s
	}
	s.User = &user
	return s
}
