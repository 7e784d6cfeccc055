package queue

import "action-lifecycle-service/internal/lifecycle"

// CommandMessage is the wire form of a command on the commands topic.
type CommandMessage = lifecycle.Envelope
