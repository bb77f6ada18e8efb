// Package remote is the client side of the per-identity document store.
//
// The adapter neither retries nor queues. Callers decide when to call it and
// what to do when it fails.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/existflow/ironhabit/internal/logger"
	"github.com/existflow/ironhabit/internal/model"
)

// TodosCollection is the collection name under users/{uid}.
const TodosCollection = "todos"

// Adapter is the remote todo collection of one identity.
type Adapter interface {
	// Upsert replaces the document stored under itemID with item. Calling
	// it repeatedly with the same value leaves the same remote state.
	Upsert(ctx context.Context, itemID string, item model.TodoItem) error

	// ListAll returns every document of the collection.
	ListAll(ctx context.Context) ([]model.TodoItem, error)

	// Delete removes the document stored under itemID. Missing documents
	// are not an error.
	Delete(ctx context.Context, itemID string) error
}

// TodoCollection implements Adapter over HTTP.
type TodoCollection struct {
	client   *Client
	identity model.Identity
	crypto   *Crypto
}

// DocPath returns the logical path users/{uid}/todos/{itemID}.
func DocPath(uid, itemID string) string {
	return "users/" + uid + "/" + TodosCollection + "/" + itemID
}

func (t *TodoCollection) collectionPath() string {
	return "/api/v1/users/" + url.PathEscape(t.identity.UID) + "/" + TodosCollection
}

// Upsert implements Adapter.
func (t *TodoCollection) Upsert(ctx context.Context, itemID string, item model.TodoItem) error {
	if !t.identity.Valid() {
		return ErrNoIdentity
	}

	doc, err := t.encode(itemID, item)
	if err != nil {
		return err
	}

	resp, err := t.client.do(ctx, http.MethodPut, t.collectionPath()+"/"+url.PathEscape(itemID), t.identity.Token, doc)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", DocPath(t.identity.UID, itemID), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError("upsert "+DocPath(t.identity.UID, itemID), resp)
	}
	return nil
}

// ListAll implements Adapter. One document that cannot be decoded fails the
// whole listing, so a caller never mistakes a partial collection for the
// remote one.
func (t *TodoCollection) ListAll(ctx context.Context) ([]model.TodoItem, error) {
	if !t.identity.Valid() {
		return nil, ErrNoIdentity
	}

	resp, err := t.client.do(ctx, http.MethodGet, t.collectionPath(), t.identity.Token, nil)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", TodosCollection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("list "+TodosCollection, resp)
	}

	var result ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}

	items := make([]model.TodoItem, 0, len(result.Items))
	for _, doc := range result.Items {
		item, err := t.decode(doc)
		if err != nil {
			logger.Warn("Unreadable remote document",
				logger.F("id", doc.ID), logger.F("sealed", doc.Sealed), logger.F("error", err))
			return nil, fmt.Errorf("list %s: document %s: %w", TodosCollection, doc.ID, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Delete implements Adapter.
func (t *TodoCollection) Delete(ctx context.Context, itemID string) error {
	if !t.identity.Valid() {
		return ErrNoIdentity
	}

	resp, err := t.client.do(ctx, http.MethodDelete, t.collectionPath()+"/"+url.PathEscape(itemID), t.identity.Token, nil)
	if err != nil {
		return fmt.Errorf("delete %s: %w", DocPath(t.identity.UID, itemID), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return statusError("delete "+DocPath(t.identity.UID, itemID), resp)
	}
	return nil
}

func (t *TodoCollection) encode(itemID string, item model.TodoItem) (Document, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return Document{}, err
	}
	if t.crypto == nil {
		return Document{ID: itemID, Data: data}, nil
	}

	sealed, err := t.crypto.Encrypt(data)
	if err != nil {
		return Document{}, fmt.Errorf("seal %s: %w", itemID, err)
	}
	quoted, _ := json.Marshal(sealed)
	return Document{ID: itemID, Data: quoted, Sealed: true}, nil
}

func (t *TodoCollection) decode(doc Document) (model.TodoItem, error) {
	data := []byte(doc.Data)
	if doc.Sealed {
		if t.crypto == nil {
			return model.TodoItem{}, ErrSealed
		}
		var sealed string
		if err := json.Unmarshal(doc.Data, &sealed); err != nil {
			return model.TodoItem{}, err
		}
		plain, err := t.crypto.Decrypt(sealed)
		if err != nil {
			return model.TodoItem{}, err
		}
		data = plain
	}

	var item model.TodoItem
	if err := json.Unmarshal(data, &item); err != nil {
		return model.TodoItem{}, err
	}
	if item.ID == "" {
		item.ID = doc.ID
	}
	return item, nil
}
