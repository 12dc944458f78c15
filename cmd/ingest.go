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
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eslsoft/vidya/internal/app"
	"github.com/eslsoft/vidya/internal/usecase/ingest"
)

const (
	ingestCollectionKey = "ingest.collection"
	ingestItemKey       = "ingest.item"
	ingestWhereKey      = "ingest.where"
	ingestLimitKey      = "ingest.limit"
	ingestDryRunKey     = "ingest.dry_run"
	ingestBatchKey      = "ingest.batch_size"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "抓取并导入一个文集",
	Long:  "按配置的文集列出条目，抓取原文与译文两路文本，逐节解析合并后写入存储。使用 --dry-run 只解析不写入。",
	PreRun: bindDryRun,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		name := viper.GetString(ingestCollectionKey)
		if name == "" {
			return fmt.Errorf("请通过 --collection 指定文集，可选: %s", strings.Join(cfg.CollectionNames(), ", "))
		}
		col, err := cfg.Collection(name)
		if err != nil {
			return fmt.Errorf("解析文集失败: %w", err)
		}

		container, cleanup, err := app.Initialize(cfg)
		if err != nil {
			return fmt.Errorf("初始化失败: %w", err)
		}
		defer cleanup()

		report, err := container.Ingest.Run(cmd.Context(), ingest.Request{
			Collection: col,
			Item:       viper.GetString(ingestItemKey),
			Where:      viper.GetString(ingestWhereKey),
			Limit:      viper.GetInt(ingestLimitKey),
			DryRun:     cfg.Ingest.DryRun,
		})
		if report != nil {
			printIngestReport(cmd.OutOrStdout(), report)
		}
		if err != nil {
			return fmt.Errorf("导入失败: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringP("collection", "c", "", "文集名称 (见 collections 配置)")
	ingestCmd.Flags().String("item", "", "只处理指定条目 (路径、文件名或不带扩展名的文件名)")
	ingestCmd.Flags().String("where", "", "CEL 过滤表达式，可用变量: name, path, index, number, collection")
	ingestCmd.Flags().Int("limit", 0, "最多处理的条目数 (0 表示不限)")
	ingestCmd.Flags().Bool("dry-run", false, "只解析与合并，不写入存储")
	ingestCmd.Flags().Int("batch-size", 0, "每批写入的节数 (默认 100)")

	bindFlagToViper(ingestCollectionKey, ingestCmd.Flags().Lookup("collection"))
	bindFlagToViper(ingestItemKey, ingestCmd.Flags().Lookup("item"))
	bindFlagToViper(ingestWhereKey, ingestCmd.Flags().Lookup("where"))
	bindFlagToViper(ingestLimitKey, ingestCmd.Flags().Lookup("limit"))
	bindFlagToViper(ingestBatchKey, ingestCmd.Flags().Lookup("batch-size"))
}

// bindDryRun is run per command since ingest and lexicon share the key.
func bindDryRun(cmd *cobra.Command, _ []string) {
	bindFlagToViper(ingestDryRunKey, cmd.Flags().Lookup("dry-run"))
}

func printIngestReport(w io.Writer, r *ingest.Report) {
	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "导入完成%s: 文集 %s, 运行 %s\n", mode, r.Collection, r.RunID)
	fmt.Fprintf(w, "  条目: 列出 %d, 选中 %d, 成功 %d, 失败 %d, 跳过 %d\n", r.Listed, r.Selected, r.Imported, r.Failed, r.Skipped)
	fmt.Fprintf(w, "  写入: 经节 %d, 文稿 %d, 失败批次 %d, 缺少译文 %d\n", r.VersesWritten, r.TranscriptsWritten, r.FailedBatches, r.IncompleteVerses)
	for _, item := range r.FailedItems {
		fmt.Fprintf(w, "  失败条目: %s\n", item)
	}
	fmt.Fprintf(w, "  耗时: %s\n", r.Duration.Round(time.Millisecond))
}
