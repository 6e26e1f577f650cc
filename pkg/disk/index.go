package disk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/downfa11-org/logunit/pkg/metrics"
	"github.com/downfa11-org/logunit/pkg/record"
	"github.com/downfa11-org/logunit/pkg/types"
	"github.com/downfa11-org/logunit/util"
	"golang.org/x/exp/mmap"
)

// readAddressSpace rebuilds the known addresses of a freshly opened segment.
// A missing or partial header is rewritten. The first partial record truncates
// the file at its start; nothing after it is trusted.
func readAddressSpace(h *SegmentHandle, verify bool) error {
	info, err := h.writeFile.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", h.path, err)
	}
	size := info.Size()

	header, off, err := record.ReadHeader(h.writeFile, size)
	if errors.Is(err, record.ErrPartialWrite) {
		util.Warn("couldn't find log header for %s, creating new header", h.path)
		return writeHeader(h, verify)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", h.path, err)
	}
	if err := checkHeader(h.path, header, verify); err != nil {
		return err
	}

	for off < size {
		m, payload, err := record.ReadRecord(h.writeFile, off, size, verify)
		if errors.Is(err, record.ErrPartialWrite) {
			util.Warn("malformed entry at offset %d in file %s, truncating", off, h.path)
			if err := truncateAt(h, off); err != nil {
				return err
			}
			metrics.RecoveryTruncations.Inc()
			break
		}
		if err != nil {
			return fmt.Errorf("%s: %w", h.path, err)
		}

		entry, err := record.UnmarshalEntry(payload)
		if err != nil {
			return fmt.Errorf("%s offset %d: %w", h.path, off, err)
		}

		h.knownAddresses[entry.GlobalAddress] = types.AddressMetaData{
			PayloadChecksum: m.PayloadChecksum,
			Length:          m.Length,
			Offset:          off + record.MetadataSize,
		}
		off += record.MetadataSize + int64(m.Length)
	}

	h.writeOffset = off
	return nil
}

func writeHeader(h *SegmentHandle, verify bool) error {
	if err := h.writeFile.Truncate(0); err != nil {
		return fmt.Errorf("truncate %s: %w", h.path, err)
	}
	h.writeOffset = 0

	buf := record.EncodeHeader(record.LogHeader{Version: record.Version, VerifyChecksum: verify})
	if err := safeWrite(h, buf); err != nil {
		return fmt.Errorf("write header %s: %w", h.path, err)
	}
	return h.writeFile.Sync()
}

func truncateAt(h *SegmentHandle, off int64) error {
	if err := h.writeFile.Truncate(off); err != nil {
		return fmt.Errorf("truncate %s at %d: %w", h.path, off, err)
	}
	return h.writeFile.Sync()
}

// safeWrite appends buf at the tracked write offset. On failure the file is cut
// back to its previous length so a retry cannot leave a gap or a torn record.
func safeWrite(h *SegmentHandle, buf []byte) error {
	prev := h.writeOffset
	n, err := h.writeFile.WriteAt(buf, prev)
	if err != nil {
		if terr := h.writeFile.Truncate(prev); terr != nil {
			util.Error("failed to rewind %s to %d: %v", h.path, prev, terr)
		} else if serr := h.writeFile.Sync(); serr != nil {
			util.Error("failed to sync %s after rewind: %v", h.path, serr)
		}
		return err
	}
	h.writeOffset = prev + int64(n)
	return nil
}

func checkHeader(path string, header record.LogHeader, verify bool) error {
	if header.Version != record.Version {
		return fmt.Errorf("%w: log version %d for %s should match the logunit log version %d",
			types.ErrLogVersionMismatch, header.Version, path, record.Version)
	}
	if verify && !header.VerifyChecksum {
		return fmt.Errorf("%w: %s", types.ErrChecksumModeMismatch, path)
	}
	return nil
}

// VerifyLogs checks the header of every segment file in dir. Files whose header
// was only partially written are skipped; recovery rewrites them on open.
func VerifyLogs(dir string, verify bool) error {
	files, err := listSegmentFiles(dir)
	if err != nil {
		return err
	}

	for _, sf := range files {
		if err := verifyFile(sf.path, verify); err != nil {
			return err
		}
	}
	return nil
}

func verifyFile(path string, verify bool) error {
	reader, err := mmap.Open(path)
	if err != nil {
		return fmt.Errorf("mmap open failed: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			util.Error("failed to unmap %s: %v", path, err)
		}
	}()

	header, _, err := record.ReadHeader(reader, int64(reader.Len()))
	if errors.Is(err, record.ErrPartialWrite) {
		util.Warn("ignoring partially written header in %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return checkHeader(path, header, verify)
}

type segmentFile struct {
	segment int64
	path    string
	size    int64
}

// listSegmentFiles returns the <segment>.log files of dir ordered by segment.
// Other files are ignored. A missing dir yields no files.
func listSegmentFiles(dir string) ([]segmentFile, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	files := make([]segmentFile, 0, len(entries))
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".log") {
			continue
		}
		segment, err := strconv.ParseInt(strings.TrimSuffix(name, ".log"), 10, 64)
		if err != nil {
			util.Warn("ignoring file %s", name)
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		files = append(files, segmentFile{segment: segment, path: filepath.Join(dir, name), size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].segment < files[j].segment })
	return files, nil
}

// InspectedRecord is one entry found by InspectSegment.
type InspectedRecord struct {
	Offset   int64
	Metadata record.Metadata
	Entry    *types.LogData
}

// SegmentReport describes a segment file read without opening it for writes.
type SegmentReport struct {
	Path    string
	Size    int64
	Header  record.LogHeader
	Records []InspectedRecord
	// ValidEnd is the offset after the last complete record; recovery truncates here.
	ValidEnd int64
	Partial  bool
}

// InspectSegment reads a segment file through a read-only mapping.
func InspectSegment(path string, verify bool) (*SegmentReport, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmap open failed: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			util.Error("failed to unmap %s: %v", path, err)
		}
	}()

	size := int64(reader.Len())
	report := &SegmentReport{Path: path, Size: size}

	header, off, err := record.ReadHeader(reader, size)
	if errors.Is(err, record.ErrPartialWrite) {
		report.Partial = true
		return report, nil
	}
	if err != nil {
		return nil, err
	}
	report.Header = header

	for off < size {
		m, payload, err := record.ReadRecord(reader, off, size, verify)
		if errors.Is(err, record.ErrPartialWrite) {
			report.Partial = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("offset %d: %w", off, err)
		}
		entry, err := record.UnmarshalEntry(payload)
		if err != nil {
			return nil, fmt.Errorf("offset %d: %w", off, err)
		}
		report.Records = append(report.Records, InspectedRecord{Offset: off, Metadata: m, Entry: entry})
		off += record.MetadataSize + int64(m.Length)
	}
	report.ValidEnd = off
	return report, nil
}
