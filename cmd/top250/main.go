// Package main 是 top250 命令行入口：爬取豆瓣电影 Top 250、导出数据并生成静态画廊。
//
// 用法：
//
//	top250 crawl [--out DIR] [--no-history] [--gallery]
//	top250 gallery [--run ID|latest]
//	top250 history [--run ID] [--export]
//	top250 init [-o top250.yaml] [-f]
//	top250 version
package main

func main() {
	Execute()
}
