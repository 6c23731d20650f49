package session

import (
	"fmt"

	"github.com/htonioni/smart-note-ai/internal/errs"
)

// Operation names a mutation kind. Each kind tracks its own in-flight ids.
type Operation string

const (
	OperationCreate       Operation = "create"
	OperationEdit         Operation = "edit"
	OperationDelete       Operation = "delete"
	OperationEnrich       Operation = "enrich"
	OperationClearSummary Operation = "clear_summary"
	OperationLoad         Operation = "load"
)

const (
	messageCreated        = "Note Created successfully!"
	messageUpdated        = "Note updated!"
	messageDeleted        = "Note deleted!"
	messageEnriched       = "AI summary generated!"
	messageSummaryRemoved = "Note summary deleted!"

	messageDeleteNotFound = "Note not found. It may have already been deleted."
	messageNotFound       = "Note not found. It may have been deleted. Refresh to see the latest notes."

	messageServer      = "Server error occurred while %s. Please try again."
	messageUnavailable = "Service temporarily unavailable. Please try again in a moment."
	messageRateLimited = "The AI service is temporarily overloaded. Please try again in a moment."
	messageConnection  = "Connection failed. Please check your internet and try again."
	messageRejected    = "The request was rejected: %s."
	messageBadReply    = "The AI service returned an unexpected response. Please try again."
	messageUnexpected  = "An unexpected error occurred while %s."

	messageGenerateFailed   = "Failed to generate AI content."
	messageGeneratedUnsaved = "AI content was generated but could not be saved."
	messageClearFailed      = "Failed to delete note summary."
	messageCreatedWithoutAI = "Note created, but AI content could not be generated."
	messageAIUnconfigured   = "AI content is not available."
)

var activities = map[Operation]string{
	OperationCreate:       "creating your note",
	OperationEdit:         "updating your note",
	OperationDelete:       "deleting your note",
	OperationEnrich:       "saving the AI content",
	OperationClearSummary: "removing the summary",
	OperationLoad:         "loading your notes",
}

// describeFailure renders the user-facing explanation of err for operation.
func describeFailure(operation Operation, err error) string {
	activity := activities[operation]
	switch errs.KindOf(err) {
	case errs.Validation:
		return capitalize(errs.MessageOf(err)) + "."
	case errs.NotFound:
		if operation == OperationDelete {
			return messageDeleteNotFound
		}
		return messageNotFound
	case errs.Server:
		return fmt.Sprintf(messageServer, activity)
	case errs.Unavailable:
		return messageUnavailable
	case errs.RateLimited:
		return messageRateLimited
	case errs.Connection:
		return messageConnection
	case errs.InvalidRequest:
		return fmt.Sprintf(messageRejected, errs.MessageOf(err))
	case errs.InvalidResponse:
		return messageBadReply
	default:
		return fmt.Sprintf(messageUnexpected, activity)
	}
}

// withDetail prefixes a failure explanation with a summary sentence.
func withDetail(summary string, operation Operation, err error) string {
	return summary + " " + describeFailure(operation, err)
}

func capitalize(message string) string {
	if message == "" {
		return message
	}
	runes := []rune(message)
	if runes[0] >= 'a' && runes[0] <= 'z' {
		runes[0] -= 'a' - 'A'
	}
	return string(runes)
}
