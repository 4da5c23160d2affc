package entity

// GraphicCardStatus is one row of the local GPU status report.
type GraphicCardStatus struct {
	ID       string `json:"id"`
	Power    string `json:"power"`
	Fan      string `json:"fan"`
	GPUUsage string `json:"gpu_usage"`
	MemUsage string `json:"mem_usage"`
	GPUClock string `json:"gpu_clock"`
	MemClock string `json:"mem_clock"`
}

// ServiceStatus is the running state of one miner service container.
type ServiceStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// SystemStatus groups the device and service reports shown alongside the
// aggregated mining data.
type SystemStatus struct {
	Graphics []GraphicCardStatus `json:"graphics"`
	Services []ServiceStatus     `json:"services"`
}
