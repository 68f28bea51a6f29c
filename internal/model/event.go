package model

import "time"

// Kafka message keys for the crawl-event topic.
const (
	EventKeyRepoTouched = "repo_touched"
	EventKeyRunHalted   = "run_halted"
)

// EventMessage is the payload published to the crawl-event topic.
type EventMessage struct {
	Type    string    `json:"type"`
	RepoID  int64     `json:"repo_id,omitempty"`
	User    string    `json:"user,omitempty"`
	Name    string    `json:"name,omitempty"`
	Outcome string    `json:"outcome,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}
