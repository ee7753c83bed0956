package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// EventID identifies an emitted event: the transaction that emitted it and
// its position within that transaction.
type EventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// Event is one entry of the node's event log.
type Event struct {
	ID                EventID         `json:"id"`
	PackageID         string          `json:"packageId"`
	TransactionModule string          `json:"transactionModule"`
	Sender            string          `json:"sender"`
	Type              string          `json:"type"`
	ParsedJSON        json.RawMessage `json:"parsedJson"`
	TimestampMs       string          `json:"timestampMs"`
}

// Timestamp returns the event timestamp in unix milliseconds, or 0 when the
// node omitted it.
func (e Event) Timestamp() uint64 {
	ms, err := strconv.ParseUint(e.TimestampMs, 10, 64)
	if err != nil {
		return 0
	}
	return ms
}

// EventQuery selects events emitted by one module of a package.
type EventQuery struct {
	Package    string
	Module     string
	Cursor     *EventID
	Limit      int
	Descending bool
}

// EventPage is one page of query results.
type EventPage struct {
	Data        []Event  `json:"data"`
	NextCursor  *EventID `json:"nextCursor"`
	HasNextPage bool     `json:"hasNextPage"`
}

// QueryEvents fetches a page of module events.
func (c *Client) QueryEvents(ctx context.Context, q EventQuery) (EventPage, error) {
	if q.Package == "" || q.Module == "" {
		return EventPage{}, fmt.Errorf("chain: event query needs package and module")
	}

	filter := map[string]any{
		"MoveModule": map[string]string{
			"package": q.Package,
			"module":  q.Module,
		},
	}
	var cursor any
	if q.Cursor != nil {
		cursor = q.Cursor
	}

	var page EventPage
	err := c.call(ctx, "suix_queryEvents", []any{filter, cursor, q.Limit, q.Descending}, &page)
	return page, err
}
