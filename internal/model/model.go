package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Teacher struct {
	Name     string
	Username string
}

// Session is the client-held proof of teacher authentication. Authenticated
// is only ever true together with a non-empty Token and a Teacher.
type Session struct {
	Token         string
	Authenticated bool
	Teacher       *Teacher
}

func (s Session) TeacherName() string {
	if s.Teacher == nil {
		return ""
	}
	return s.Teacher.Name
}

type Activity struct {
	Name            string   `json:"-"`
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// SpotsLeft is displayed as-is; a misbehaving service can make it negative.
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// Catalog keeps activities in the key order of the service's JSON object.
type Catalog []Activity

func (c *Catalog) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	tok, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("catalog_not_object")
	}

	out := Catalog{}
	seen := make(map[string]int)
	for decoder.More() {
		tok, err := decoder.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("invalid catalog key %v", tok)
		}
		var activity Activity
		if err := decoder.Decode(&activity); err != nil {
			return fmt.Errorf("activity %q: %w", name, err)
		}
		activity.Name = name
		if activity.Participants == nil {
			activity.Participants = []string{}
		}
		// Duplicate keys: last one wins, position of the first is kept.
		if idx, dup := seen[name]; dup {
			out[idx] = activity
			continue
		}
		seen[name] = len(out)
		out = append(out, activity)
	}
	if _, err := decoder.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

func (c Catalog) Find(name string) (Activity, bool) {
	for _, activity := range c {
		if activity.Name == name {
			return activity, true
		}
	}
	return Activity{}, false
}

type MessageKind string

const (
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
)

type StatusMessage struct {
	ID      string      `json:"id"`
	Text    string      `json:"text"`
	Kind    MessageKind `json:"kind"`
	ShownAt time.Time   `json:"shown_at"`
}
