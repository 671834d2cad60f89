package probe

import (
	"encoding/json"
	"fmt"

	"FlowSpectra/internal/model"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// EncodeReport serializes a report to a protobuf Struct built from its JSON
// form. Undefined metrics travel as null values.
func EncodeReport(report *model.Report) ([]byte, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to convert report to map: %w", err)
	}

	pb, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build protobuf struct: %w", err)
	}
	return proto.Marshal(pb)
}

// DecodeReport is the inverse of EncodeReport.
func DecodeReport(data []byte) (*model.Report, error) {
	var pb structpb.Struct
	if err := proto.Unmarshal(data, &pb); err != nil {
		return nil, fmt.Errorf("failed to unmarshal protobuf: %w", err)
	}

	raw, err := json.Marshal(pb.AsMap())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal protobuf struct: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}
