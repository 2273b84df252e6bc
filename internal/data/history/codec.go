package history

import (
	"fmt"

	"checkdelta/internal/core/model"

	"github.com/vmihailenco/msgpack/v5"
)

func encodeIssues(issues []model.Issue) ([]byte, error) {
	if len(issues) == 0 {
		return nil, nil
	}
	data, err := msgpack.Marshal(issues)
	if err != nil {
		return nil, fmt.Errorf("encode issues: %w", err)
	}
	return data, nil
}

func decodeIssues(data []byte) ([]model.Issue, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var issues []model.Issue
	if err := msgpack.Unmarshal(data, &issues); err != nil {
		return nil, fmt.Errorf("decode issues: %w", err)
	}
	return issues, nil
}
