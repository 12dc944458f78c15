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
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eslsoft/vidya/internal/app"
	"github.com/eslsoft/vidya/internal/entity"
)

const (
	lexiconPathKey  = "lexicon.path"
	lexiconBatchKey = "lexicon.batch_size"
)

var lexiconCmd = &cobra.Command{
	Use:   "lexicon",
	Short: "导入梵语词典 TSV",
	Long:  "读取制表符分隔的词典导出 (id, 词头, 语法, 前缀, 释义)，生成天城体与规范化词头后批量写入。",
	PreRun: bindDryRun,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		path := viper.GetString(lexiconPathKey)
		if path == "" {
			return errors.New("请通过 --file 指定词典文件")
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s", entity.ErrDictionaryNotFound, path)
			}
			return fmt.Errorf("读取词典文件失败: %w", err)
		}

		container, cleanup, err := app.Initialize(cfg)
		if err != nil {
			return fmt.Errorf("初始化失败: %w", err)
		}
		defer cleanup()

		report, err := container.Lexicon.ImportFile(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("导入词典失败: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "词典导入完成: 读取 %d, 写入 %d, 跳过 %d, 失败 %d\n", report.Read, report.Imported, report.Skipped, report.Failed)
		for _, r := range report.FailedBatches {
			fmt.Fprintf(out, "  失败批次 id: %s\n", r)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lexiconCmd)

	lexiconCmd.Flags().StringP("file", "f", "", "词典 TSV 文件路径")
	lexiconCmd.Flags().Int("batch-size", 0, "每批写入的词条数 (默认 1000)")
	lexiconCmd.Flags().Bool("dry-run", false, "只解析，不写入存储")

	bindFlagToViper(lexiconPathKey, lexiconCmd.Flags().Lookup("file"))
	bindFlagToViper(lexiconBatchKey, lexiconCmd.Flags().Lookup("batch-size"))
}
