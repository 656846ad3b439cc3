package health

type Input struct{}

type Output struct {
	Body Response
}

type Response struct {
	Status string `json:"status" example:"OK" doc:"Health status of the service"`
	Error  string `json:"error,omitempty" doc:"Why the service is unhealthy"`
}
