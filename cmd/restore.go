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
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eslsoft/vidya/internal/app"
	"github.com/eslsoft/vidya/internal/infrastructure/database"
	"github.com/eslsoft/vidya/internal/usecase/backup"
)

const (
	restoreInputKey  = "backup.restore.input"
	restoreTablesKey = "backup.restore.tables"
	restoreStrictKey = "backup.restore.strict"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "从备份文件恢复数据库内容",
	Long:  "读取 export 生成的 NDJSON 备份 (自动识别 gzip 与 xz 压缩)，先执行表结构迁移，再在单个事务中逐行写入。",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		inputPath := viper.GetString(restoreInputKey)
		if inputPath == "" {
			return errors.New("请通过 --input 指定备份文件或使用 - 表示标准输入")
		}

		container, cleanup, err := app.InitializeDatabase(cfg)
		if err != nil {
			return fmt.Errorf("创建备份服务失败: %w", err)
		}
		defer cleanup()

		driver, err := cfg.DatabaseDriver()
		if err != nil {
			return fmt.Errorf("解析数据库驱动失败: %w", err)
		}
		if err := database.Migrate(ctx, driver, container.DB); err != nil {
			return fmt.Errorf("执行数据库迁移失败: %w", err)
		}

		reader := cmd.InOrStdin()
		if inputPath != "-" {
			file, openErr := os.Open(filepath.Clean(inputPath))
			if openErr != nil {
				return fmt.Errorf("打开备份文件失败: %w", openErr)
			}
			defer file.Close()
			reader = file
		}

		dr, compression, err := backup.NewReader(reader)
		if err != nil {
			return fmt.Errorf("读取备份失败: %w", err)
		}
		defer func() {
			if cerr := dr.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()

		var opts []backup.RestoreOption
		if tables := tablesFromConfig(restoreTablesKey); len(tables) > 0 {
			opts = append(opts, backup.WithRestoreTables(tables))
		}
		if viper.GetBool(restoreStrictKey) {
			opts = append(opts, backup.WithStrictSchema())
		}

		summary, err := container.Backup.Restore(ctx, dr, opts...)
		if err != nil {
			return fmt.Errorf("恢复备份失败: %w", err)
		}

		cmd.Printf("恢复完成: %s (压缩: %s)\n", inputPath, compression)
		if summary.SchemaDiffer {
			cmd.PrintErrln("警告: 备份的表结构与当前数据库不一致")
		}
		tables := make([]string, 0, len(summary.Rows))
		for name := range summary.Rows {
			tables = append(tables, name)
		}
		sort.Strings(tables)
		for _, name := range tables {
			cmd.Printf("  %s: %d 行\n", name, summary.Rows[name])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().StringP("input", "i", "", "备份文件路径，使用 - 表示标准输入")
	restoreCmd.Flags().StringSlice("tables", nil, "仅恢复指定表，逗号分隔或重复指定")
	restoreCmd.Flags().Bool("strict", false, "表结构哈希不一致时中止")

	bindFlagToViper(restoreInputKey, restoreCmd.Flags().Lookup("input"))
	bindFlagToViper(restoreTablesKey, restoreCmd.Flags().Lookup("tables"))
	bindFlagToViper(restoreStrictKey, restoreCmd.Flags().Lookup("strict"))
}
