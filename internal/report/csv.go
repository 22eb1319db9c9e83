// Package report writes the evaluation indicator rows into the survey CSV
// report files.
package report

import (
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Report file names follow the survey interface numbering.
const (
	FileResidential = "IF101_居住誘導区域関連評価指標ファイル.csv"
	FileUrbanFunc   = "IF102_都市機能誘導区域関連評価指標ファイル.csv"
	FileDisaster    = "IF103_防災関連評価指標ファイル.csv"
	FileTransit     = "IF104_公共交通関連評価指標ファイル.csv"
	FileLandUse     = "IF105_土地利用関連評価指標ファイル.csv"
	FileFixedAsset  = "IF106_財政関連評価指標_固定資産税ファイル.csv"
	FileExpenditure = "IF106_財政関連評価指標_歳出額ファイル.csv"
)

// Writer writes report files into one output directory.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir, creating it if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create output dir %s", dir)
	}
	return &Writer{dir: dir}, nil
}

// Write marshals the rows into a UTF-8 CSV file with a header derived
// from the row struct tags. An empty row slice still writes the header.
func (w *Writer) Write(filename string, rows any) error {
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrapf(err, "report: marshal %s", filename)
	}

	path := filepath.Join(w.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", filename)
	}

	zap.L().Info("report: file written",
		zap.String("path", path),
	)
	return nil
}
