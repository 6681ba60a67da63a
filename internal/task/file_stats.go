package task

import (
	"bytes"
	"context"
	"errors"
	"unicode/utf8"

	"github.com/tallyq/tally/internal/domain"
)

// FileStatsName is the task name jobs are submitted under.
const FileStatsName = "file_stats"

// ErrInvalidText is returned when the decoded contents are not valid
// UTF-8 and character statistics cannot be computed.
var ErrInvalidText = errors.New("contents are not valid UTF-8 text")

// FileStats counts line separators and characters in the given file
// contents. Characters are counted as runes, so multi-byte text is
// measured the way a reader would.
func FileStats(ctx context.Context, contents []byte) (domain.Stats, error) {
	if !utf8.Valid(contents) {
		return domain.Stats{}, ErrInvalidText
	}
	return domain.Stats{
		Lines:      bytes.Count(contents, []byte("\n")),
		Characters: utf8.RuneCount(contents),
	}, nil
}
