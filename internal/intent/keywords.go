package intent

import "strings"

var (
	rescheduleKeywords = []string{"reschedule", "postpone", "change", "move"}
	completeKeywords   = []string{"done", "complete"}
	showKeywords       = []string{"show", "list", "display", "view"}
	taskKeywords       = []string{"task", "todo", "to-do"}
)

// containsAny reports whether any keyword is a case-insensitive substring
// of text.
func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// IsReschedule reports whether the utterance asks to move a meeting.
func IsReschedule(utterance string) bool {
	return containsAny(utterance, rescheduleKeywords)
}

// IsCompletion reports whether the utterance says a task is finished.
func IsCompletion(utterance string) bool {
	return containsAny(utterance, completeKeywords)
}

// AsksToShowTasks reports whether the utterance asks to see tasks.
func AsksToShowTasks(utterance string) bool {
	return containsAny(utterance, showKeywords) && containsAny(utterance, taskKeywords)
}
