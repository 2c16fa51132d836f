// 命令行工具：单查、批量查询（YAML 请求文件）与批量导入 PostgreSQL
package main

import (
	"os"

	"ipapi-client/internal/logger"
	"ipapi-client/internal/utils"
)

func main() {
	utils.LoadEnv()
	logger.Setup()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
