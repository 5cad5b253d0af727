package feature

import (
	"context"

	"github.com/wfunc/slot-client/internal/config"
	"github.com/wfunc/slot-client/internal/errors"
	"github.com/wfunc/slot-client/internal/event"
	"github.com/wfunc/slot-client/internal/scheduler"
	"github.com/wfunc/slot-client/internal/state"
	"go.uber.org/zap"
)

// Spinner 发起转动
type Spinner interface {
	RequestSpin(source event.SpinSource) (string, error)
}

// Animator 播放动画
type Animator interface {
	PlayAll(ctx context.Context, names []string, data interface{}) error
}

// Context 插件依赖
type Context struct {
	Bus      *event.Bus
	Store    *state.Store
	Sched    *scheduler.Scheduler
	Spinner  Spinner
	Animator Animator
	Config   config.GameConfig
	Logger   *zap.Logger
}

// Plugin 特性插件
type Plugin interface {
	Name() string
	// Events 需要订阅的事件，注册时由 Registry 订阅
	Events() []event.Name
	Init(ctx *Context) error
	OnEvent(e event.Event)
	Destroy()
}

type registered struct {
	plugin Plugin
	unsubs []func()
}

// Registry 按注册顺序保存插件，反序销毁
type Registry struct {
	ctx     *Context
	plugins []registered
	logger  *zap.Logger
}

// NewRegistry 创建插件注册表
func NewRegistry(ctx *Context) *Registry {
	return &Registry{
		ctx:    ctx,
		logger: ctx.Logger.With(zap.String("component", "feature_registry")),
	}
}

// Register 初始化插件并订阅它声明的事件
func (r *Registry) Register(p Plugin) error {
	if r.Get(p.Name()) != nil {
		return errors.Newf(errors.ErrInvalidParam, "插件 %s 已注册", p.Name())
	}
	if err := p.Init(r.ctx); err != nil {
		r.logger.Error("插件初始化失败", zap.String("plugin", p.Name()), zap.Error(err))
		return err
	}

	reg := registered{plugin: p}
	for _, name := range p.Events() {
		reg.unsubs = append(reg.unsubs, r.ctx.Bus.Subscribe(name, p.OnEvent))
	}
	r.plugins = append(r.plugins, reg)
	r.logger.Info("插件已注册", zap.String("plugin", p.Name()), zap.Int("events", len(reg.unsubs)))
	return nil
}

// Get 按名称查找插件
func (r *Registry) Get(name string) Plugin {
	for _, reg := range r.plugins {
		if reg.plugin.Name() == name {
			return reg.plugin
		}
	}
	return nil
}

// Plugins 按注册顺序返回插件
func (r *Registry) Plugins() []Plugin {
	out := make([]Plugin, len(r.plugins))
	for i, reg := range r.plugins {
		out[i] = reg.plugin
	}
	return out
}

// SetConfig 替换插件共享的配置，插件下次读取时生效。只在循环协程上调用
func (r *Registry) SetConfig(cfg config.GameConfig) {
	r.ctx.Config = cfg
}

// Destroy 反序取消订阅并销毁插件
func (r *Registry) Destroy() {
	for i := len(r.plugins) - 1; i >= 0; i-- {
		reg := r.plugins[i]
		for _, unsub := range reg.unsubs {
			unsub()
		}
		reg.plugin.Destroy()
		r.logger.Debug("插件已销毁", zap.String("plugin", reg.plugin.Name()))
	}
	r.plugins = nil
}

// decode 解码事件负载，类型不符时记录错误
func decode[T any](logger *zap.Logger, e event.Event) (T, bool) {
	v, err := event.DecodePayload[T](e.Payload)
	if err != nil {
		logger.Error("事件负载类型不匹配", zap.String("event", string(e.Name)), zap.Error(err))
		return v, false
	}
	return v, true
}
