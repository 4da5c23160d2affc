package telemetry

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TimestampLayout is the timestamp format written by the miner telemetry
// collector.
const TimestampLayout = "2006-01-02 15:04:05"

// Sample is one telemetry observation: a timestamp and one reading per
// device, keyed by device id.
type Sample struct {
	Timestamp time.Time
	Values    map[string]float64
}

// Readings returns the sample values ordered by device id, so a reading keeps
// the same position across samples of the same window.
func (s Sample) Readings() []float64 {
	ids := make([]string, 0, len(s.Values))
	for id := range s.Values {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	readings := make([]float64, 0, len(ids))
	for _, id := range ids {
		readings = append(readings, s.Values[id])
	}
	return readings
}

type sampleRecord struct {
	Timestamp string             `json:"timestamp"`
	Value     map[string]float64 `json:"value"`
}

// ParseSample decodes one newline-delimited telemetry record.
func ParseSample(line []byte) (Sample, error) {
	var rec sampleRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return Sample{}, fmt.Errorf("decode telemetry record: %w", err)
	}

	ts, err := time.Parse(TimestampLayout, rec.Timestamp)
	if err != nil {
		return Sample{}, fmt.Errorf("parse telemetry timestamp %q: %w", rec.Timestamp, err)
	}

	return Sample{Timestamp: ts, Values: rec.Value}, nil
}

// TailSamples reads the most recent n records of the telemetry log without
// scanning the whole file. Fewer than n records is valid; any read or parse
// fault is an error.
func TailSamples(path string, n int) ([]Sample, error) {
	lines, err := tailLines(path, n)
	if err != nil {
		return nil, err
	}

	samples := make([]Sample, 0, len(lines))
	for _, line := range lines {
		s, err := ParseSample(line)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}

const tailChunkSize = 4096

// tailLines returns the last n non-empty lines of the file, reading backwards
// in fixed-size chunks from the end.
func tailLines(path string, n int) ([][]byte, error) {
	if n <= 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	var (
		buf    []byte
		offset = info.Size()
	)
	for offset > 0 {
		chunk := int64(tailChunkSize)
		if chunk > offset {
			chunk = offset
		}
		offset -= chunk

		part := make([]byte, chunk)
		if _, err := f.ReadAt(part, offset); err != nil && err != io.EOF {
			return nil, err
		}
		buf = append(part, buf...)

		// Stop once the buffer already spans n complete lines.
		if bytes.Count(buf, []byte{'\n'}) > n {
			break
		}
	}

	split := bytes.Split(buf, []byte{'\n'})
	lines := make([][]byte, 0, len(split))
	for _, line := range split {
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			lines = append(lines, line)
		}
	}

	// The oldest buffered line may be truncated mid-record; keeping only the
	// last n lines also discards it, since the loop buffers more than n
	// complete lines before stopping early.
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
