package nodes

import "iotsync/internal/infrastructure/remote"

type getInput struct {
	Path string `query:"path" required:"true" example:"device_status" doc:"Parent path whose children are returned"`
}

type getOutput struct {
	Body remote.NodesResponse
}

type putInput struct {
	Path string         `query:"path" required:"true" example:"device_status/dev-1" doc:"Node path to overwrite"`
	Body map[string]any `doc:"Node value"`
}

type deleteInput struct {
	Path string `query:"path" required:"true" example:"device_status/dev-1" doc:"Node path removed together with its descendants"`
}

type output struct {
	Body response
}

type response struct {
	Status  string `json:"status"`
	Path    string `json:"path,omitempty"`
	Deleted int64  `json:"deleted,omitempty"`
	Error   string `json:"error,omitempty"`
}
