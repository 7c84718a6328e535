// Package pool 分批并发执行任务
package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit 默认每批并发数
const DefaultLimit = 5

// Task 单个任务
type Task func(ctx context.Context) error

// RunWaves 按批执行任务，每批最多 limit 个
//
// 一批内的任务全部结束后才开始下一批；某批出现失败时等待该批结束，
// 返回第一个错误且不再启动后续批次。同批任务之间不会互相取消。
func RunWaves(ctx context.Context, tasks []Task, limit int) error {
	if limit <= 0 {
		limit = 1
	}

	for start := 0; start < len(tasks); start += limit {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + limit
		if end > len(tasks) {
			end = len(tasks)
		}

		var g errgroup.Group
		for _, task := range tasks[start:end] {
			task := task
			g.Go(func() error {
				return task(ctx)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// Waves 返回 n 个任务按 limit 分批后的批次数
func Waves(n, limit int) int {
	if limit <= 0 {
		limit = 1
	}
	if n <= 0 {
		return 0
	}
	return (n + limit - 1) / limit
}
