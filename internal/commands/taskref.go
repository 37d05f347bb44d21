package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"aide/internal/service"
)

// TaskRef identifies a task either by its position in the pending list or by backend ID.
type TaskRef struct {
	Num  int   // 1-based position, when ByID is false
	ID   int64 // backend ID, when ByID is true
	ByID bool
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses a task reference from args.
//
// Accepted forms:
//  1. <digits>      position in the pending list as printed by todo
//  2. #<digits>     backend task ID
//  3. id:<digits>   backend task ID
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}
	if len(args) > 1 {
		return TaskRef{}, fmt.Errorf("unexpected argument: %s", args[1])
	}
	ref := strings.TrimSpace(args[0])
	if ref == "" {
		return TaskRef{}, ErrTaskRefRequired
	}

	if rest, ok := cutIDPrefix(ref); ok {
		if !isAllDigits(rest) {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", ref)
		}
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", ref)
		}
		return TaskRef{ID: id, ByID: true}, nil
	}

	if !isAllDigits(ref) {
		return TaskRef{}, fmt.Errorf("invalid task reference: %s", ref)
	}
	num, err := strconv.Atoi(ref)
	if err != nil || num < 1 {
		return TaskRef{}, fmt.Errorf("invalid task reference: %s", ref)
	}
	return TaskRef{Num: num}, nil
}

func cutIDPrefix(ref string) (string, bool) {
	if rest, ok := strings.CutPrefix(ref, "#"); ok {
		return rest, true
	}
	return strings.CutPrefix(ref, "id:")
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Resolve returns the backend ID ref points at in tasks.
func (r TaskRef) Resolve(tasks []service.Task) (int64, error) {
	if r.ByID {
		return r.ID, nil
	}
	if r.Num < 1 || r.Num > len(tasks) {
		return 0, fmt.Errorf("task not found: %d", r.Num)
	}
	return tasks[r.Num-1].ID, nil
}
