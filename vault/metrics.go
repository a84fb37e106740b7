package vault

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals,promlinter
var (
	metricBytesEncrypted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamvault_bytes_encrypted_total",
		Help: "Number of plaintext bytes encrypted by vault output streams",
	})

	metricBytesDecrypted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamvault_bytes_decrypted_total",
		Help: "Number of plaintext bytes returned by vault input streams",
	})

	metricKeyLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamvault_key_loads_total",
		Help: "Number of times the vault key was loaded from the keystore",
	}, []string{"result"})
)

func reportKeyLoad(err error) {
	if err != nil {
		metricKeyLoads.WithLabelValues("error").Inc()
		return
	}

	metricKeyLoads.WithLabelValues("success").Inc()
}

func reportBytesEncrypted(length int64) {
	metricBytesEncrypted.Add(float64(length))
}

func reportBytesDecrypted(length int64) {
	metricBytesDecrypted.Add(float64(length))
}
