// Package girdertest runs an in-memory Girder API for tests.
package girdertest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/arborworkflows/arbor-apps/internal/girder"
)

const apiPrefix = "/api/v1/"

// Submission records one item task execution request.
type Submission struct {
	TaskID  string
	Inputs  map[string]girder.Binding
	Outputs map[string]girder.Binding
}

// Server is an httptest.Server speaking the subset of the Girder API used by
// arbor. Fields may be configured before the first request; use the helper
// methods once requests are in flight.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	user     girder.User
	paths    map[string]girder.Resource
	items    map[string]girder.Item
	tasks    []girder.Item
	files    map[string][]girder.File
	contents map[string]string
	statuses []int
	outputs  map[string]string
	polls    int
	nextID   int

	submissions []Submission
	folders     []girder.Folder
	requests    []string
	tokens      []string
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		user:     girder.User{ID: "user1", Login: "alice"},
		paths:    make(map[string]girder.Resource),
		items:    make(map[string]girder.Item),
		files:    make(map[string][]girder.File),
		contents: make(map[string]string),
		outputs:  make(map[string]string),
		statuses: []int{3},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// APIURL returns the API root to hand to girder.NewClient.
func (s *Server) APIURL() string {
	return s.URL + strings.TrimSuffix(apiPrefix, "/")
}

// Client returns a girder.Client bound to the server.
func (s *Server) Client(t testing.TB, token string) *girder.Client {
	t.Helper()
	c, err := girder.NewClient(s.APIURL(), token)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

// AddPath makes path resolvable through resource/lookup.
func (s *Server) AddPath(path string, res girder.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths[path] = res
}

// AddItem registers an item with a single file holding content and returns
// the file id.
func (s *Server) AddItem(itemID, name, content string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[itemID] = girder.Item{ID: itemID, Name: name}
	fileID := s.newID("file")
	s.files[itemID] = append(s.files[itemID], girder.File{ID: fileID, Name: name, ItemID: itemID, Size: int64(len(content))})
	s.contents[fileID] = content
	return fileID
}

// AddTask registers an executable item task discoverable by search.
func (s *Server) AddTask(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, girder.Item{ID: id, Name: name})
}

// ScriptJob sets the status codes returned by successive job polls. The last
// code repeats once the script is exhausted.
func (s *Server) ScriptJob(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append([]int(nil), statuses...)
	s.polls = 0
}

// BindOutput makes finished jobs report output name as written to itemID.
func (s *Server) BindOutput(name, itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs[name] = itemID
}

// Submissions returns the recorded executions.
func (s *Server) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.submissions...)
}

// Folders returns the folders created so far.
func (s *Server) Folders() []girder.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]girder.Folder(nil), s.folders...)
}

// Requests returns "METHOD path" for every request served.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// CountRequests counts served requests whose "METHOD path" has prefix.
func (s *Server) CountRequests(prefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

// Tokens returns the Girder-Token header of every request.
func (s *Server) Tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tokens...)
}

func (s *Server) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s%d", prefix, s.nextID)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, apiPrefix) {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, apiPrefix)
	parts := strings.Split(path, "/")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r.Method+" "+path)
	s.tokens = append(s.tokens, r.Header.Get("Girder-Token"))

	switch {
	case r.Method == http.MethodGet && path == "user/me":
		writeJSON(w, s.user)
	case r.Method == http.MethodGet && path == "resource/lookup":
		res, ok := s.paths[r.URL.Query().Get("path")]
		if !ok {
			writeError(w, http.StatusBadRequest, "Path not found: "+r.URL.Query().Get("path"))
			return
		}
		writeJSON(w, res)
	case r.Method == http.MethodGet && path == "resource/search":
		q := r.URL.Query().Get("q")
		result := girder.SearchResult{Items: []girder.Item{}}
		if r.URL.Query().Get("types") == `["item"]` {
			for _, task := range s.tasks {
				if strings.HasPrefix(task.Name, q) {
					result.Items = append(result.Items, task)
				}
			}
		}
		writeJSON(w, result)
	case r.Method == http.MethodPost && path == "folder":
		q := r.URL.Query()
		folder := girder.Folder{ID: s.newID("folder"), Name: q.Get("name"), ParentID: q.Get("parentId"), ParentCollection: q.Get("parentType")}
		s.folders = append(s.folders, folder)
		writeJSON(w, folder)
	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "item_task" && parts[2] == "execution":
		s.execute(w, r, parts[1])
	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "job":
		status := s.statuses[len(s.statuses)-1]
		if s.polls < len(s.statuses) {
			status = s.statuses[s.polls]
		}
		s.polls++
		outputs := make(map[string]girder.OutputBinding, len(s.outputs))
		for name, itemID := range s.outputs {
			outputs[name] = girder.OutputBinding{ItemID: itemID}
		}
		writeJSON(w, girder.Job{ID: parts[1], Status: status, ItemTaskBindings: girder.ItemTaskBindings{Outputs: outputs}})
	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "item":
		item, ok := s.items[parts[1]]
		if !ok {
			writeError(w, http.StatusNotFound, "Invalid item id")
			return
		}
		writeJSON(w, item)
	case r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "item" && parts[2] == "files":
		files := s.files[parts[1]]
		if files == nil {
			files = []girder.File{}
		}
		writeJSON(w, files)
	case r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "file" && parts[2] == "download":
		content, ok := s.contents[parts[1]]
		if !ok {
			writeError(w, http.StatusNotFound, "Invalid file id")
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte(content))
	default:
		writeError(w, http.StatusNotFound, "No matching route")
	}
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, taskID string) {
	found := false
	for _, task := range s.tasks {
		if task.ID == taskID {
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "Invalid item id")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sub := Submission{TaskID: taskID}
	if err := json.Unmarshal([]byte(r.PostForm.Get("inputs")), &sub.Inputs); err != nil {
		writeError(w, http.StatusBadRequest, "bad inputs: "+err.Error())
		return
	}
	if err := json.Unmarshal([]byte(r.PostForm.Get("outputs")), &sub.Outputs); err != nil {
		writeError(w, http.StatusBadRequest, "bad outputs: "+err.Error())
		return
	}
	s.submissions = append(s.submissions, sub)
	s.polls = 0
	writeJSON(w, girder.Job{ID: s.newID("job"), Status: 0})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg, "type": "rest"})
}
