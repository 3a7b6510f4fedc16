package deploy

import (
	"bufio"
	"io"
	"strings"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/logging"
)

// RefUpdate is one line of post-receive input
type RefUpdate struct {
	Old string `json:"old" yaml:"old"`
	New string `json:"new" yaml:"new"`
	Ref string `json:"ref" yaml:"ref"`
}

// ParseRefUpdates reads "<old> <new> <ref>" lines. Blank lines and
// lines with fewer than three fields are skipped.
func ParseRefUpdates(r io.Reader) ([]RefUpdate, error) {
	logger := logging.GetLogger("deploy")
	var updates []RefUpdate
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 3 {
			logger.Warn().Int("line", line).Str("input", text).Msg("ignoring malformed ref update")
			continue
		}
		updates = append(updates, RefUpdate{Old: fields[0], New: fields[1], Ref: fields[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "failed to read ref updates")
	}
	return updates, nil
}

// SelectCommit returns the new id of the last update to ref
func SelectCommit(updates []RefUpdate, ref string) (string, bool) {
	commit, found := "", false
	for _, u := range updates {
		if u.Ref == ref {
			commit, found = u.New, true
		}
	}
	return commit, found
}

// IsDeletion reports whether the update removes its ref
func (u RefUpdate) IsDeletion() bool {
	return IsNullCommit(u.New)
}

// IsNullCommit reports whether id is git's all-zero object id
func IsNullCommit(id string) bool {
	return strings.Trim(id, "0") == ""
}
