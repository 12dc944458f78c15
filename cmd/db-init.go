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
	"strings"

	"github.com/spf13/cobra"

	"github.com/eslsoft/vidya/internal/app"
	"github.com/eslsoft/vidya/internal/infrastructure/config"
	"github.com/eslsoft/vidya/internal/infrastructure/database"
)

// dbInitCmd creates or upgrades the schema of a sql store
var dbInitCmd = &cobra.Command{
	Use:   "db-init",
	Short: "初始化数据库表结构",
	Long:  "对 SQLite 或 PostgreSQL 执行表结构迁移。注意: go-sqlite3 需要 CGO_ENABLED=1 构建。PostgREST 存储的表结构需在服务端创建。",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Store.Driver == config.DriverPostgREST {
			return fmt.Errorf("db-init 仅支持 sql 驱动，当前驱动: %s", cfg.Store.Driver)
		}

		container, cleanup, err := app.InitializeDatabase(cfg)
		if err != nil {
			return fmt.Errorf("连接数据库失败: %w", err)
		}
		defer cleanup()

		driver, err := cfg.DatabaseDriver()
		if err != nil {
			return fmt.Errorf("解析数据库驱动失败: %w", err)
		}
		if err := database.Migrate(cmd.Context(), driver, container.DB); err != nil {
			return fmt.Errorf("执行数据库迁移失败: %w", err)
		}
		cmd.Printf("数据库迁移完成: %s\n", strings.Join(database.TableNames(), ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbInitCmd)
}
