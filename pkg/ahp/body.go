package ahp

import (
	"fmt"
	"io"
)

// BodyTooLargeError reports a response body longer than the reader allows.
type BodyTooLargeError struct {
	Limit int64
}

func (e *BodyTooLargeError) Error() string {
	return fmt.Sprintf("response exceeds %d bytes", e.Limit)
}

// ReadLimited reads all of r when it holds at most limit bytes. A longer
// body yields *BodyTooLargeError instead of a silently truncated one.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, &BodyTooLargeError{Limit: limit}
	}
	return body, nil
}
