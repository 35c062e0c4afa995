// devops 启动 Eino Dev 调试服务并注册对话编排图，供 IDE 插件（Eino Dev）连接后进行可视化调试。
// 图结构与线上编排一致（classify → summarize → generate ⇄ tools），节点用替身逻辑，
// 不需要模型凭证即可 Test Run。
// 使用：go run ./cmd/devops；在 IDE 中配置连接地址 127.0.0.1:52538 后选择编排进行调试。
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cloudwego/eino-ext/devops"
	"github.com/cloudwego/eino/compose"
)

// DebugState 调试图的轮次状态
type DebugState struct {
	Query  string `json:"query"`
	Intent string `json:"intent"`
	Rounds int    `json:"rounds"`
	Reply  string `json:"reply"`
}

// registerTurnGraph 注册与线上同拓扑的对话轮次图
func registerTurnGraph(ctx context.Context) error {
	g := compose.NewGraph[*DebugState, *DebugState]()

	g.AddLambdaNode("classify", compose.InvokableLambda(func(ctx context.Context, st *DebugState) (*DebugState, error) {
		if st == nil || st.Query == "" {
			return nil, fmt.Errorf("查询不能为空")
		}
		st.Intent = "general-answer"
		if strings.Contains(strings.ToLower(st.Query), "explain") {
			st.Intent = "eli5"
		}
		return st, nil
	}))

	g.AddLambdaNode("summarize", compose.InvokableLambda(func(ctx context.Context, st *DebugState) (*DebugState, error) {
		return st, nil
	}))

	g.AddLambdaNode("generate", compose.InvokableLambda(func(ctx context.Context, st *DebugState) (*DebugState, error) {
		if st.Rounds == 0 {
			// 第一次生成请求一轮工具调用，便于在插件里观察分支
			return st, nil
		}
		st.Reply = fmt.Sprintf("[%s] stub answer for: %s", st.Intent, st.Query)
		return st, nil
	}))

	g.AddLambdaNode("tools", compose.InvokableLambda(func(ctx context.Context, st *DebugState) (*DebugState, error) {
		st.Rounds++
		return st, nil
	}))

	g.AddEdge(compose.START, "classify")
	g.AddEdge("classify", "summarize")
	g.AddEdge("summarize", "generate")
	g.AddEdge("tools", "generate")

	branch := compose.NewGraphBranch(func(ctx context.Context, st *DebugState) (string, error) {
		if st.Reply == "" {
			return "tools", nil
		}
		return compose.END, nil
	}, map[string]bool{"tools": true, compose.END: true})
	if err := g.AddBranch("generate", branch); err != nil {
		return fmt.Errorf("add branch: %w", err)
	}

	if _, err := g.Compile(ctx, compose.WithMaxRunSteps(16)); err != nil {
		return fmt.Errorf("compile turn graph: %w", err)
	}
	return nil
}

func main() {
	ctx := context.Background()

	// 必须在任何 Compile 之前初始化调试服务
	if err := devops.Init(ctx); err != nil {
		log.Fatalf("[eino dev] init failed: %v", err)
	}

	if err := registerTurnGraph(ctx); err != nil {
		log.Fatalf("[eino dev] register turn graph: %v", err)
	}

	log.Println("[eino dev] server listening on 127.0.0.1:52538; open Eino Dev in IDE and configure this address to debug")
	log.Println("[eino dev] press Ctrl+C to exit")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Println("[eino dev] shutting down")
}
