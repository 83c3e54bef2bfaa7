package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Record is one bitable row. Field values keep whatever JSON type the
// platform used (string, number, list of text segments, ...).
type Record struct {
	RecordID string         `json:"record_id"`
	Fields   map[string]any `json:"fields"`
}

// RecordPage is a single page of records in source order.
type RecordPage struct {
	Items     []Record
	HasMore   bool
	PageToken string
	Total     int
}

type listRecordsResponse struct {
	envelope
	Data struct {
		Items     []Record `json:"items"`
		HasMore   bool     `json:"has_more"`
		PageToken string   `json:"page_token"`
		Total     int      `json:"total"`
	} `json:"data"`
}

// ListRecords fetches the first page of records of a bitable table.
// It does not follow page tokens; HasMore tells the caller rows were left out.
func (c *Client) ListRecords(ctx context.Context, token, appToken, tableID string, pageSize int) (RecordPage, error) {
	const op = "list records"
	path := fmt.Sprintf("/open-apis/bitable/v1/apps/%s/tables/%s/records", url.PathEscape(appToken), url.PathEscape(tableID))
	if pageSize > 0 {
		path += "?page_size=" + strconv.Itoa(pageSize)
	}

	status, body, err := c.do(ctx, op, http.MethodGet, path, token, nil)
	if err != nil {
		return RecordPage{}, err
	}

	var r listRecordsResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return RecordPage{}, &APIError{Op: op, Status: status, Body: string(body)}
	}
	if !ok(status) || r.Code != 0 {
		c.forgetRejected(token, r.Code)
		return RecordPage{}, &APIError{Op: op, Status: status, Code: r.Code, Body: string(body)}
	}

	return RecordPage{
		Items:     r.Data.Items,
		HasMore:   r.Data.HasMore,
		PageToken: r.Data.PageToken,
		Total:     r.Data.Total,
	}, nil
}
