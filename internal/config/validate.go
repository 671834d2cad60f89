package config

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"
)

// schema constrains the fields whose values are enumerated. Unknown keys are
// left to the YAML decoder.
const schema = `
source?: {
	type?: "flowmon" | "capture"
	flowmon?: {
		path?: string
	}
	capture?: {
		tx_paths?: [...string]
		rx_paths?: [...string]
	}
}
reducer?: {
	strict?:           bool
	allow_duplicates?: bool
}
writers?: [...{
	type:     "text" | "json" | "gob" | "clickhouse"
	enabled?: bool
	clickhouse?: {
		port?: int & >0 & <65536
	}
}]
alerter?: {
	enabled?: bool
	rules?: [...{
		name:      string
		metric:    "delivery_ratio" | "loss_ratio" | "mean_delay" | "mean_jitter" | "throughput" | "fairness" | "lost_packets"
		scope?:    "aggregate" | "flow"
		operator:  ">" | "<" | "=" | ">=" | "<="
		threshold: number
	}]
}
nats?: {
	enabled?: bool
	url?:     string
	subject?: string
}
log?: {
	level?:  "debug" | "info" | "warn" | "error"
	format?: "console" | "json"
}
`

// Validate checks raw YAML config bytes against the embedded CUE schema.
func Validate(filename string, data []byte) error {
	ctx := cuecontext.New()

	file, err := yaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("cannot parse YAML config: %w", err)
	}
	configVal := ctx.BuildFile(file)
	if configVal.Err() != nil {
		return fmt.Errorf("cannot build config value: %w", configVal.Err())
	}

	schemaVal := ctx.CompileString(schema, cue.Filename("schema.cue"))
	if schemaVal.Err() != nil {
		return fmt.Errorf("invalid embedded schema: %w", schemaVal.Err())
	}

	final := schemaVal.Unify(configVal)
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
