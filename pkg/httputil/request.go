package httputil

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/conceptdoc/pkg/entity"
)

// RootNode names the top of the browser tree in query parameters
const RootNode = "root"

// ParsePathID extracts an entity id path parameter
func ParsePathID(r *http.Request, key string) (int64, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return 0, fmt.Errorf("%w: missing path parameter %s", entity.ErrInvalidID, key)
	}
	return entity.ParseID(str)
}

// ParseQueryID extracts an entity id query parameter
func ParseQueryID(r *http.Request, key string) (int64, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return 0, fmt.Errorf("%w: missing query parameter %s", entity.ErrInvalidID, key)
	}
	return entity.ParseID(str)
}

// ParseQueryNode extracts a tree node query parameter. An empty or "root"
// value selects the top level and returns nil.
func ParseQueryNode(r *http.Request, key string) (*int64, error) {
	str := r.URL.Query().Get(key)
	if str == "" || str == RootNode {
		return nil, nil
	}
	id, err := entity.ParseID(str)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
