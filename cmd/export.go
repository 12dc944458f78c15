/*
Copyright © 2025 Ambor <saltbo@foxmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eslsoft/vidya/internal/app"
	"github.com/eslsoft/vidya/internal/usecase/backup"
)

const (
	exportOutputKey   = "backup.export.output"
	exportCompressKey = "backup.export.compress"
	exportTablesKey   = "backup.export.tables"
	exportBatchKey    = "backup.export.batch_size"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "导出数据库内容为 NDJSON 备份",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		outputPath := viper.GetString(exportOutputKey)
		compression, err := backup.ParseCompression(viper.GetString(exportCompressKey))
		if err != nil {
			return err
		}
		if compression == backup.CompressionNone && outputPath != "-" {
			compression = backup.CompressionFromPath(outputPath)
		}
		if outputPath == "" {
			outputPath = defaultExportFilename(compression)
		}

		container, cleanup, err := app.InitializeDatabase(cfg)
		if err != nil {
			return fmt.Errorf("创建备份服务失败: %w", err)
		}
		defer cleanup()
		service := container.Backup
		if size := viper.GetInt(exportBatchKey); size > 0 {
			backup.WithBatchSize(size)(service)
		}

		var (
			writer   = cmd.OutOrStdout()
			closeFns []func() error
		)
		if outputPath != "-" {
			if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
				return fmt.Errorf("创建输出目录失败: %w", err)
			}
			file, openErr := os.Create(outputPath)
			if openErr != nil {
				return fmt.Errorf("创建备份文件失败: %w", openErr)
			}
			writer = file
			closeFns = append(closeFns, file.Close)
		}

		cw, err := backup.NewWriter(writer, compression)
		if err != nil {
			return err
		}
		closeFns = append([]func() error{cw.Close}, closeFns...)

		defer func() {
			for _, closer := range closeFns {
				if cerr := closer(); cerr != nil && err == nil {
					err = cerr
				}
			}
		}()

		exportOpts := []backup.ExportOption{backup.WithProgressReporter(newCLIProgress(cmd.ErrOrStderr()))}
		if tables := tablesFromConfig(exportTablesKey); len(tables) > 0 {
			exportOpts = append(exportOpts, backup.WithTables(tables))
		}
		if err := service.Export(ctx, cw, exportOpts...); err != nil {
			return fmt.Errorf("导出备份失败: %w", err)
		}

		if outputPath == "-" {
			cmd.PrintErrln("导出完成: 输出到标准输出")
		} else {
			cmd.Printf("导出完成: %s\n", outputPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "", "备份输出文件路径，使用 - 表示标准输出")
	exportCmd.Flags().String("compress", "", "压缩格式 (none|gzip|xz)，默认按文件后缀判断")
	exportCmd.Flags().StringSlice("tables", nil, "仅导出指定表，逗号分隔或重复指定")
	exportCmd.Flags().Int("batch-size", 0, "导出批处理大小 (默认 512)")

	bindFlagToViper(exportOutputKey, exportCmd.Flags().Lookup("output"))
	bindFlagToViper(exportCompressKey, exportCmd.Flags().Lookup("compress"))
	bindFlagToViper(exportTablesKey, exportCmd.Flags().Lookup("tables"))
	bindFlagToViper(exportBatchKey, exportCmd.Flags().Lookup("batch-size"))
}

func defaultExportFilename(c backup.Compression) string {
	ts := time.Now().UTC().Format("20060102-150405")
	return fmt.Sprintf("vidya-backup-%s.jsonl%s", ts, c.Extension())
}

type cliProgress struct {
	out         io.Writer
	totals      map[string]int
	counts      map[string]int
	lastPrinted map[string]int
	steps       map[string]int
}

func newCLIProgress(out io.Writer) *cliProgress {
	return &cliProgress{
		out:         out,
		totals:      make(map[string]int),
		counts:      make(map[string]int),
		lastPrinted: make(map[string]int),
		steps:       make(map[string]int),
	}
}

func (p *cliProgress) StartTable(table string, total int) {
	total = max(total, 0)
	p.totals[table] = total
	p.counts[table] = 0
	p.lastPrinted[table] = 0
	p.steps[table] = progressStep(total)
	fmt.Fprintf(p.out, "开始导出 %s (共 %d 行)\n", table, total)
}

func (p *cliProgress) Increment(table string, delta int) {
	if delta <= 0 {
		return
	}
	current := p.counts[table] + delta
	p.counts[table] = current
	total := p.totals[table]
	step := max(p.steps[table], 1)
	last := p.lastPrinted[table]
	if current == total || last == 0 || current-last >= step {
		fmt.Fprintf(p.out, "导出进度 %s: %d/%d\n", table, current, total)
		p.lastPrinted[table] = current
	}
}

func (p *cliProgress) FinishTable(table string) {
	fmt.Fprintf(p.out, "完成导出 %s: %d/%d 行\n", table, p.counts[table], p.totals[table])
	delete(p.counts, table)
	delete(p.totals, table)
	delete(p.lastPrinted, table)
	delete(p.steps, table)
}

// progressStep prints roughly twenty lines per table, at most every 1000 rows.
func progressStep(total int) int {
	if total <= 0 {
		return 1000
	}
	return min(max(total/20, 1), 1000)
}
