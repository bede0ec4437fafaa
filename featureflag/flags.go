package featureflag

type Flag string

const (
	FlagSeedSampleIndex         Flag = "SEED_SAMPLE_INDEX"
	FlagDisableStreamEndpoint   Flag = "DISABLE_STREAM_ENDPOINT"
	FlagDisableSnapshotEndpoint Flag = "DISABLE_SNAPSHOT_ENDPOINT"
	FlagDisableClusterEndpoint  Flag = "DISABLE_CLUSTER_ENDPOINT"
)
