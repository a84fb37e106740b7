package vault

import "github.com/prometheus/client_golang/prometheus"

func MetricBytesEncrypted() prometheus.Counter { return metricBytesEncrypted }

func MetricBytesDecrypted() prometheus.Counter { return metricBytesDecrypted }
