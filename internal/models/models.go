package models

// UserRequest is the body accepted by the create and update endpoints.
// An "id" sent by the client is not part of it and is therefore ignored.
type UserRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Title    string `json:"title"`
}

// InternalStatsResponse is returned by the internal stats endpoint.
type InternalStatsResponse struct {
	Users int64 `json:"users"`
}

const (
	StorageTypeUnknown = iota
	StorageTypeMongo
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)
