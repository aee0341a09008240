package imgarchive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBackupRestoreRoundTrip(t *testing.T) {
	for _, format := range []Format{Zstd, XZ} {
		format := format
		t.Run(format.String(), func(t *testing.T) {
			dir := t.TempDir()
			image := filepath.Join(dir, "fs.img")
			archive := filepath.Join(dir, "fs.archive")
			restored := filepath.Join(dir, "restored.img")

			want := make([]byte, 256*1024)
			for i := range want {
				want[i] = byte(i % 251)
			}
			require.NoError(t, os.WriteFile(image, want, 0644))

			require.NoError(t, Backup(image, archive, format))
			require.NoError(t, Restore(archive, restored, format))

			got, err := os.ReadFile(restored)
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}
}
