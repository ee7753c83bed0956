package chain

import (
	"context"
	"encoding/json"
)

// OwnedObject is an object owned by an address, with its type tag and fields.
type OwnedObject struct {
	ObjectID string
	Type     string
	Fields   json.RawMessage
}

type ownedObjectsPage struct {
	Data []struct {
		Data *struct {
			ObjectID string `json:"objectId"`
			Type     string `json:"type"`
			Content  *struct {
				DataType string          `json:"dataType"`
				Type     string          `json:"type"`
				Fields   json.RawMessage `json:"fields"`
			} `json:"content"`
		} `json:"data"`
	} `json:"data"`
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

// maxObjectPages bounds how many pages of owned objects are walked.
const maxObjectPages = 10

// GetOwnedObjects lists the objects owned by owner with type and content.
func (c *Client) GetOwnedObjects(ctx context.Context, owner string) ([]OwnedObject, error) {
	query := map[string]any{
		"filter": nil,
		"options": map[string]bool{
			"showType":    true,
			"showContent": true,
		},
	}

	var (
		objects []OwnedObject
		cursor  *string
	)
	for page := 0; page < maxObjectPages; page++ {
		var resp ownedObjectsPage
		if err := c.call(ctx, "suix_getOwnedObjects", []any{owner, query, cursor, nil}, &resp); err != nil {
			return nil, err
		}

		for _, entry := range resp.Data {
			if entry.Data == nil {
				continue
			}
			obj := OwnedObject{
				ObjectID: entry.Data.ObjectID,
				Type:     entry.Data.Type,
			}
			if entry.Data.Content != nil {
				obj.Fields = entry.Data.Content.Fields
				if obj.Type == "" {
					obj.Type = entry.Data.Content.Type
				}
			}
			objects = append(objects, obj)
		}

		if !resp.HasNextPage || resp.NextCursor == nil {
			break
		}
		cursor = resp.NextCursor
	}

	return objects, nil
}
