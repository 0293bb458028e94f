package metricskey

import "github.com/effective-security/metrics"

// Perf
var (
	// PerfCryptoOperation is perf metric
	PerfCryptoOperation = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_crypto",
		Help:         "perf_crypto provides the sample metrics of KMS crypto operations",
		RequiredTags: []string{"provider", "action"},
	}

	// PerfAssertionSign is perf metric
	PerfAssertionSign = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_assertion_sign",
		Help:         "perf_assertion_sign provides the sample metrics of JWT assertion signing",
		RequiredTags: []string{"alg"},
	}

	// PerfTokenExchange is perf metric
	PerfTokenExchange = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_token_exchange",
		Help:         "perf_token_exchange provides the sample metrics of token endpoint round trips",
		RequiredTags: []string{"status"},
	}
)

// Metrics returns slice of metrics from this repo
var Metrics = []*metrics.Describe{
	&PerfCryptoOperation,
	&PerfAssertionSign,
	&PerfTokenExchange,
}
