package cli

type Params struct {
	NodeID             string   `json:"node_id"`
	Debug              bool     `json:"debug"`
	HTTPAddress        string   `json:"http_address"`
	BackendHTTPAddress string   `json:"backend_http_address"`
	BackendBaseURL     string   `json:"backend_base_url"`
	GRPCAddress        string   `json:"grpc_address"`
	RedisAddress       string   `json:"redis_address"`
	NATSAddress        []string `json:"nats_address"`
	NATSUseTLS         bool     `json:"nats_use_tls"`
	NATSTLSCaCert      string   `json:"nats_tls_ca_cert"`
	NATSTLSClientCert  string   `json:"nats_tls_client_cert"`
	NATSTLSClientKey   string   `json:"nats_tls_client_key"`
	NATSTLSSkipVerify  bool     `json:"nats_tls_skip_verify"`
}
