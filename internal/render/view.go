package render

import (
	"fmt"

	"mergington/signup/internal/model"
)

const (
	MsgLoadFailed      = "Failed to load activities. Please try again later."
	MsgNoParticipants  = "No participants yet"
	welcomeAnonymous   = "Not logged in"
	loginIconAnonymous = "👤"
	loginIconTeacher   = "👤✓"
)

type Participant struct {
	Email    string `json:"email"`
	Activity string `json:"activity"`
	// Removable is set only when the session was authenticated at render time.
	Removable bool `json:"removable"`
}

type Card struct {
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Schedule     string        `json:"schedule"`
	SpotsLeft    int           `json:"spots_left"`
	Availability string        `json:"availability"`
	Participants []Participant `json:"participants"`
	Empty        string        `json:"empty,omitempty"`
}

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// View is the rendered catalog. When Error is set Cards is empty and the
// error text stands in for the list.
type View struct {
	Generation uint64   `json:"generation"`
	Cards      []Card   `json:"cards"`
	Options    []Option `json:"options"`
	Error      string   `json:"error,omitempty"`
}

// ChromeView is the auth chrome: welcome text and the login affordance.
type ChromeView struct {
	Authenticated bool   `json:"authenticated"`
	Welcome       string `json:"welcome"`
	LoginIcon     string `json:"login_icon"`
	LoginTitle    string `json:"login_title"`
}

// Render draws catalog for session. It does no I/O.
func Render(catalog model.Catalog, session model.Session) View {
	removable := session.Authenticated && session.Token != ""
	view := View{
		Cards:   make([]Card, 0, len(catalog)),
		Options: make([]Option, 0, len(catalog)),
	}
	for _, activity := range catalog {
		card := Card{
			Name:         activity.Name,
			Description:  activity.Description,
			Schedule:     activity.Schedule,
			SpotsLeft:    activity.SpotsLeft(),
			Availability: fmt.Sprintf("%d spots left", activity.SpotsLeft()),
			Participants: make([]Participant, 0, len(activity.Participants)),
		}
		for _, email := range activity.Participants {
			card.Participants = append(card.Participants, Participant{
				Email:     email,
				Activity:  activity.Name,
				Removable: removable,
			})
		}
		if len(card.Participants) == 0 {
			card.Empty = MsgNoParticipants
		}
		view.Cards = append(view.Cards, card)
		view.Options = append(view.Options, Option{Value: activity.Name, Label: activity.Name})
	}
	return view
}

func Chrome(session model.Session) ChromeView {
	if session.Authenticated && session.Teacher != nil {
		return ChromeView{
			Authenticated: true,
			Welcome:       "Welcome, " + session.Teacher.Name,
			LoginIcon:     loginIconTeacher,
			LoginTitle:    "Logged in as teacher",
		}
	}
	return ChromeView{
		Welcome:    welcomeAnonymous,
		LoginIcon:  loginIconAnonymous,
		LoginTitle: "Click to login",
	}
}
