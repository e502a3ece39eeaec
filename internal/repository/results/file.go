package results

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/latmon/internal/config"
	"github.com/oshokin/latmon/internal/domain/alarm"
)

// Repository defines persistence operations for the latest summary.
type Repository interface {
	Load(ctx context.Context) (*alarm.Summary, error)
	Save(ctx context.Context, summary *alarm.Summary) error
}

// FileRepository persists the latest summary to a JSON file on disk.
// JSON is produced and consumed via protobuf JSON (protojson) of a
// structpb.Struct, the same message the report service answers with.
type FileRepository struct {
	// path is the filesystem location of the snapshot.
	path string
	// mu protects concurrent access to the snapshot file.
	mu sync.Mutex
}

// ErrNotFound is returned when no snapshot has been written yet.
var ErrNotFound = errors.New("results not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the snapshot location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the summary from disk.
func (r *FileRepository) Load(_ context.Context) (*alarm.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read results file: %w", err)
	}

	var snapshot structpb.Struct
	if err = protojson.Unmarshal(contents, &snapshot); err != nil {
		return nil, fmt.Errorf("decode results file: %w", err)
	}

	return FromStruct(&snapshot)
}

// Save writes the summary to disk. The file is replaced atomically so that
// watchers never read a partial snapshot.
func (r *FileRepository) Save(_ context.Context, summary *alarm.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	marshalOptions := protojson.MarshalOptions{
		Multiline:       true,
		EmitUnpopulated: true,
	}

	data, err := marshalOptions.Marshal(ToStruct(summary))
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write results file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace results file: %w", err)
	}

	return nil
}
