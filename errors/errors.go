package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// Client input errors. Surfaced to the HTTP boundary as 4xx.
	ErrInvalidRecipient  = fmt.Errorf("sender and recipient must differ")
	ErrDuplicateNickname = fmt.Errorf("nickname already taken")
	ErrForbidden         = fmt.Errorf("principal does not match requested user")

	// Race signals. Recovered inside the ingest pipeline, never surfaced.
	ErrDuplicateConversation = fmt.Errorf("conversation already exists for participant pair")
	ErrConversationNotFound  = fmt.Errorf("conversation not found")

	ErrUserNotFound = fmt.Errorf("user not found")
	ErrEmptyWords   = fmt.Errorf("no words have been found")
)
