package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/teco-project/teco-core/tcerr"
)

type listInput struct {
	Offset int64 `json:"Offset"`
	Limit  int64 `json:"Limit"`
}

func (*listInput) Protocol() Protocol { return ProtocolJSON }

func (in *listInput) NextInput(last *listOutput) (ListInput[int, *listOutput], bool) {
	return &listInput{
		Offset: in.Offset + int64(len(last.InstanceSet)),
		Limit:  in.Limit,
	}, true
}

type listOutput struct {
	BaseResponse
	InstanceSet []int  `json:"InstanceSet"`
	Total       *int64 `json:"TotalCount,omitempty"`
}

func (o *listOutput) Items() []int { return o.InstanceSet }

func (o *listOutput) TotalCount() (int64, bool) {
	if o.Total == nil {
		return 0, false
	}
	return *o.Total, true
}

// pageServer serves pages[i] on the i-th call, with the matching total when
// totals is non-nil.
func pageServer(t *testing.T, pages [][]int, totals []int64) *httptest.Server {
	t.Helper()
	var call atomic.Int32
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := int(call.Add(1)) - 1
		if i >= len(pages) {
			t.Errorf("unexpected page request %d", i)
			i = len(pages) - 1
		}
		out := map[string]any{
			"RequestId":   fmt.Sprintf("page-%d", i),
			"InstanceSet": pages[i],
		}
		if totals != nil {
			out["TotalCount"] = totals[i]
		}
		if err := json.NewEncoder(w).Encode(map[string]any{"Response": out}); err != nil {
			t.Errorf("encoding page: %v", err)
		}
	}))
}

func newListPager(c *Client) *Pager[int, *listOutput] {
	return NewPager[int, *listOutput](c, "DescribeInstances",
		&listInput{Limit: 2},
		func() *listOutput { return &listOutput{} })
}

func TestPaginateFold(t *testing.T) {
	server := pageServer(t, [][]int{{1, 2}, {3}, {}}, []int64{3, 3, 3})
	defer server.Close()
	c := testClient(t, server.URL)

	got, err := Paginate(context.Background(), c, "DescribeInstances",
		&listInput{Limit: 2},
		func() *listOutput { return &listOutput{} },
		[]int(nil),
		func(acc []int, page *listOutput) ([]int, error) {
			return append(acc, page.InstanceSet...), nil
		})
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("items = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("items = %v, want %v", got, want)
		}
	}
}

func TestPaginateEarlyStop(t *testing.T) {
	// Only one page is served; a second fetch would fail the test.
	server := pageServer(t, [][]int{{1, 2}}, []int64{5})
	defer server.Close()
	c := testClient(t, server.URL)

	got, err := Paginate(context.Background(), c, "DescribeInstances",
		&listInput{Limit: 2},
		func() *listOutput { return &listOutput{} },
		[]int(nil),
		func(acc []int, page *listOutput) ([]int, error) {
			return append(acc, page.InstanceSet...), ErrStopPagination
		})
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("items = %v, want the first page only", got)
	}
}

func TestPagerAll(t *testing.T) {
	server := pageServer(t, [][]int{{1, 2}, {3}, {}}, []int64{3, 3, 3})
	defer server.Close()
	c := testClient(t, server.URL)

	var got []int
	for item, err := range newListPager(c).All(context.Background()) {
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		got = append(got, item)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("items = %v, want [1 2 3]", got)
	}
}

func TestPagerPages(t *testing.T) {
	server := pageServer(t, [][]int{{1, 2}, {3}, {}}, []int64{3, 3, 3})
	defer server.Close()
	c := testClient(t, server.URL)

	var sizes []int
	for page, err := range newListPager(c).Pages(context.Background()) {
		if err != nil {
			t.Fatalf("Pages: %v", err)
		}
		sizes = append(sizes, len(page.InstanceSet))
	}
	if len(sizes) != 3 || sizes[0] != 2 || sizes[1] != 1 || sizes[2] != 0 {
		t.Errorf("page sizes = %v, want [2 1 0]", sizes)
	}
}

func TestPagerTotalCountChanged(t *testing.T) {
	server := pageServer(t, [][]int{{1, 2}, {3}}, []int64{3, 4})
	defer server.Close()
	c := testClient(t, server.URL)

	var items []int
	var gotErr error
	for item, err := range newListPager(c).All(context.Background()) {
		if err != nil {
			gotErr = err
			break
		}
		items = append(items, item)
	}

	if !errors.Is(gotErr, tcerr.ErrTotalCountChanged) {
		t.Fatalf("got %v, want totalCountChanged", gotErr)
	}
	// The second page's items must not leak out before the error.
	if len(items) != 2 {
		t.Errorf("items before error = %v, want the first page only", items)
	}
}

func TestPagerNoTotalNeverMismatches(t *testing.T) {
	server := pageServer(t, [][]int{{1, 2}, {3}, {}}, nil)
	defer server.Close()
	c := testClient(t, server.URL)

	count := 0
	for _, err := range newListPager(c).All(context.Background()) {
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		count++
	}
	if count != 3 {
		t.Errorf("item count = %d, want 3", count)
	}
}

func TestPagerPerPageErrorSurfaces(t *testing.T) {
	var call atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if call.Add(1) == 1 {
			fmt.Fprint(w, `{"Response":{"RequestId":"p0","InstanceSet":[1,2],"TotalCount":3}}`)
			return
		}
		fmt.Fprint(w, `{"Response":{"RequestId":"p1","Error":{"Code":"InternalError","Message":"boom"}}}`)
	}))
	defer server.Close()
	c := testClient(t, server.URL, WithRetryPolicy(NoRetryPolicy{}))

	pager := newListPager(c)
	if _, err := pager.NextPage(context.Background()); err != nil {
		t.Fatalf("first page: %v", err)
	}
	_, err := pager.NextPage(context.Background())
	var svcErr *tcerr.ServiceError
	if !errors.As(err, &svcErr) || svcErr.Code != "InternalError" {
		t.Fatalf("got %v, want the per-page service error", err)
	}
	if pager.HasMorePages() {
		t.Error("pager should be finished after an error")
	}
}
