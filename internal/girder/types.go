package girder

// User mirrors the payload returned by /user/me.
type User struct {
	ID    string `json:"_id"`
	Login string `json:"login"`
}

// Resource is the generic document returned by /resource/lookup.
type Resource struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	ModelType string `json:"_modelType"`
}

// Folder mirrors a Girder folder document.
type Folder struct {
	ID               string `json:"_id"`
	Name             string `json:"name"`
	ParentID         string `json:"parentId"`
	ParentCollection string `json:"parentCollection"`
}

// Item mirrors a Girder item document. Item tasks are items too.
type Item struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	FolderID string `json:"folderId"`
}

// SearchResult mirrors /resource/search restricted to items.
type SearchResult struct {
	Items []Item `json:"item"`
}

// File mirrors a file attached to an item.
type File struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	ItemID   string `json:"itemId"`
}

// Binding is one entry of an item task input or output specification.
// Mode "girder" references a stored resource; mode "inline" carries Data.
type Binding struct {
	Mode         string `json:"mode"`
	ResourceType string `json:"resource_type,omitempty"`
	ID           string `json:"id,omitempty"`
	FileName     string `json:"fileName,omitempty"`
	ParentID     string `json:"parent_id,omitempty"`
	ParentType   string `json:"parent_type,omitempty"`
	Name         string `json:"name,omitempty"`
	Data         any    `json:"data,omitempty"`
}

// Binding modes.
const (
	ModeGirder = "girder"
	ModeInline = "inline"
)

// ItemInput references an uploaded item by id and file name.
func ItemInput(id, fileName string) Binding {
	return Binding{Mode: ModeGirder, ResourceType: "item", ID: id, FileName: fileName}
}

// InlineInput carries a literal value.
func InlineInput(data any) Binding {
	return Binding{Mode: ModeInline, Data: data}
}

// FolderOutput asks the worker to upload an output file into a folder.
func FolderOutput(folderID, name string) Binding {
	return Binding{Mode: ModeGirder, ParentID: folderID, ParentType: "folder", Name: name}
}

// Job mirrors /job/{id}.
type Job struct {
	ID               string           `json:"_id"`
	Status           int              `json:"status"`
	ItemTaskBindings ItemTaskBindings `json:"itemTaskBindings"`
}

// ItemTaskBindings records where an item task job wrote its outputs.
type ItemTaskBindings struct {
	Outputs map[string]OutputBinding `json:"outputs"`
}

// OutputBinding points at the item created for one output.
type OutputBinding struct {
	ItemID string `json:"itemId"`
}
