// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 scripturerag 测试的共享工具。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 异步断言: AssertEventuallyTrue
  - 数据工具: MustJSON / MustParseJSON / WriteCorpusFile

# 子包

  - testutil/mocks: MockProvider（生成提供者）与 MockEmbedder（嵌入提供者），
    均支持 Builder 模式、调用记录与错误注入

# 使用示例

	ctx := testutil.TestContext(t)
	gen := mocks.NewMockProvider().WithResponse("## Direct Answer ...")
	emb := mocks.NewMockEmbedder(4).WithVector("what is duty", []float64{1, 0, 0, 0})
*/
package testutil
