package pagination

import (
	"encoding/base64"
	"encoding/json"
)

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=50" validate:"gte=1,lte=250"` // Min 1, Max 250
}

// Cursor carries the position of the next page. Offset-based so it composes
// with every sort mode the list endpoint supports.
type Cursor struct {
	Offset int `json:"offset"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

// BuildPageInfo inspects a limit+1 result set and produces the next token.
func BuildPageInfo[T any](data []*T, offset, limit int) (*PageInfo, []*T) {
	if limit <= 0 || len(data) <= limit {
		return &PageInfo{HasMore: false}, data
	}

	data = data[:limit]
	token, err := EncodeCursor(Cursor{Offset: offset + limit})
	if err != nil {
		return &PageInfo{HasMore: false}, data
	}

	return &PageInfo{HasMore: true, NextPageToken: token}, data
}
