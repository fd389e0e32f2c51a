package slack

import (
	"net/http"
	"net/http/httptest"
	"sync"
)

// mockSlackServer creates a test HTTP server that mocks Slack API responses
// and counts the calls made to each method.
type mockSlackServer struct {
	server   *httptest.Server
	handlers map[string]http.HandlerFunc

	mu    sync.Mutex
	calls map[string]int
}

func newMockSlackServer() *mockSlackServer {
	m := &mockSlackServer{
		handlers: make(map[string]http.HandlerFunc),
		calls:    make(map[string]int),
	}

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		m.mu.Lock()
		m.calls[path]++
		handler, ok := m.handlers[path]
		m.mu.Unlock()

		if ok {
			handler(w, r)
			return
		}
		http.Error(w, "mock not found: "+path, http.StatusNotFound)
	}))

	return m
}

func (m *mockSlackServer) close() {
	m.server.Close()
}

func (m *mockSlackServer) addHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// totalCalls returns the number of requests received for any method.
func (m *mockSlackServer) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

// callCount returns the number of requests received for path.
func (m *mockSlackServer) callCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[path]
}
