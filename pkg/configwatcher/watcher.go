package configwatcher

import (
	"path/filepath"
	"time"

	"vendor_vet_backend/internal/config"
	"vendor_vet_backend/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type ReloadFunc func(cfg *config.Config)

// WatchConfig 监听配置文件写入，去抖后重新加载并回调
func WatchConfig(configPath string, reload ReloadFunc) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Log.Error("创建配置监听失败", zap.Error(err))
		return
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		logger.Log.Error("解析配置路径失败", zap.Error(err))
		return
	}
	if err := watcher.Add(absPath); err != nil {
		logger.Log.Error("监听配置文件失败", zap.String("path", absPath), zap.Error(err))
		return
	}

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(time.Second)
			}
		case <-debounce.C:
			newCfg, err := config.LoadConfig(filepath.Dir(configPath))
			if err != nil {
				logger.Log.Error("配置重载失败", zap.Error(err))
				continue
			}
			reload(newCfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Log.Error("配置监听异常", zap.Error(err))
		}
	}
}
