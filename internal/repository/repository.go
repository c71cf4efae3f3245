// Package repository 数据访问层
// 每个聚合一组：接口 + Postgres 实现 + 内存实现（无 DB 时联测/单测用）
// 状态转移的「检查+写入」统一走条件 UPDATE（WHERE status IN (...)），
// 影响 0 行即返回 domain.ErrInvalidTransition，避免两个审批人竞争时双写
package repository

// clampPage 统一分页参数
func clampPage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return page, size
}
