package hubfetch

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/hubfetch/hubfetch/internal/testutil"
	"github.com/hubfetch/hubfetch/pkg/client"
)

func TestClient_Fetch(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/items", testutil.NewPageResponse(`[{"id":1}]`, ""))

	c := New(client.Config{TestMode: true})
	res, err := c.Fetch(context.Background(), mock.URL()+"/items")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if len(res.Activity) != 1 {
		t.Errorf("len(Activity) = %d, want 1", len(res.Activity))
	}
}

func TestClient_FetchAll(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/items", testutil.NewPageResponse(`[{"page":1}]`, mock.URL()+"/items2"))
	mock.SetResponse("/items2", testutil.NewPageResponse(`[{"page":2}]`, ""))

	c := New(client.Config{TestMode: true})
	items, err := c.FetchAll(context.Background(), mock.URL()+"/items")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	if len(items.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(items.Items))
	}
	var item struct {
		Page int `json:"page"`
	}
	if err := json.Unmarshal(items.Items[1], &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if item.Page != 2 {
		t.Errorf("second item page = %d, want 2", item.Page)
	}
}

func TestClient_FetchAll_SupplierResolves304(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/items", testutil.NewNotModifiedResponse())

	supplier := func(ctx context.Context, url string) ([]json.RawMessage, error) {
		return []json.RawMessage{json.RawMessage(`{"cached":true}`)}, nil
	}

	c := New(client.Config{TestMode: true}, WithSupplier(supplier))
	items, err := c.FetchAll(context.Background(), mock.URL()+"/items")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(items.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1 from supplier", len(items.Items))
	}
}

func TestClient_Paginate_SeparateSessionsPerCall(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/items", testutil.NewPageResponse(`[]`, ""))

	c := New(client.Config{TestMode: true})
	ctx := context.Background()

	first, err := c.Paginate(ctx, mock.URL()+"/items")
	if err != nil {
		t.Fatalf("Paginate() error = %v", err)
	}
	second, err := c.Paginate(ctx, mock.URL()+"/items")
	if err != nil {
		t.Fatalf("Paginate() error = %v", err)
	}

	// Activity must not leak across logically unrelated requests.
	if len(first.Activity) != 1 || len(second.Activity) != 1 {
		t.Errorf("activity lengths = %d, %d; want 1 and 1",
			len(first.Activity), len(second.Activity))
	}
}
