/*
 * @Description: 后台定时任务调度
 * @Author: photox
 * @Date: 2025-10-15 10:41:26
 * @LastEditTime: 2025-10-21 17:20:03
 * @LastEditors: photox
 */
package task

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	// ScratchMaxAge 超过该时长的临时文件被视为进程异常退出的残留
	ScratchMaxAge = time.Hour
	sweepSpec     = "@every 30m"
)

// Broker 负责注册和调度所有定时任务
type Broker struct {
	cron       *cron.Cron
	scratchDir string
	now        func() time.Time
}

func NewBroker(scratchDir string) *Broker {
	return &Broker{
		cron:       cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		scratchDir: scratchDir,
		now:        time.Now,
	}
}

// RegisterCronJobs 注册所有定时任务
func (b *Broker) RegisterCronJobs() {
	if _, err := b.cron.AddFunc(sweepSpec, func() { b.SweepScratch() }); err != nil {
		log.Printf("[定时任务] ⚠️ 注册临时目录清理任务失败: %v", err)
		return
	}
	log.Printf("[定时任务] ✅ 已注册临时目录清理任务 (%s)", sweepSpec)
}

func (b *Broker) Start() {
	b.cron.Start()
	// 启动时先清理一次上次运行遗留的文件
	go b.SweepScratch()
}

// Stop 等待正在执行的任务结束
func (b *Broker) Stop() {
	<-b.cron.Stop().Done()
}

// SweepScratch 删除临时目录中早于 ScratchMaxAge 的文件，返回删除的数量
func (b *Broker) SweepScratch() int {
	cutoff := b.now().Add(-ScratchMaxAge)
	removed := 0
	err := filepath.WalkDir(b.scratchDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				log.Printf("[定时任务] ⚠️ 删除临时文件 %s 失败: %v", path, err)
				return nil
			}
			removed++
		}
		return nil
	})
	if err != nil {
		log.Printf("[定时任务] ⚠️ 遍历临时目录失败: %v", err)
	}
	if removed > 0 {
		log.Printf("[定时任务] 清理了 %d 个过期临时文件", removed)
	}
	return removed
}
