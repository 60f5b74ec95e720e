package testserver

import "mergington/signup/internal/model"

// ChessClub is the single-activity catalog used across package tests.
func ChessClub() model.Catalog {
	return model.Catalog{
		{
			Name:            "Chess Club",
			Description:     "Learn strategies and compete in chess tournaments",
			Schedule:        "Fri 3pm",
			MaxParticipants: 10,
			Participants:    []string{"a@x.com"},
		},
	}
}

func SchoolCatalog() model.Catalog {
	return model.Catalog{
		{
			Name:            "Chess Club",
			Description:     "Learn strategies and compete in chess tournaments",
			Schedule:        "Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 12,
			Participants:    []string{"michael@mergington.edu", "daniel@mergington.edu"},
		},
		{
			Name:            "Programming Class",
			Description:     "Learn programming fundamentals and build software projects",
			Schedule:        "Tuesdays and Thursdays, 3:30 PM - 4:30 PM",
			MaxParticipants: 20,
			Participants:    []string{"emma@mergington.edu", "sophia@mergington.edu"},
		},
		{
			Name:            "Math Club",
			Description:     "Solve challenging problems and participate in math competitions",
			Schedule:        "Tuesdays, 3:30 PM - 4:30 PM",
			MaxParticipants: 10,
			Participants:    []string{},
		},
	}
}

var Rivera = Teacher{Username: "mrivera", Password: "teacher123", Name: "Ms. Rivera"}
