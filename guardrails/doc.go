// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 guardrails 提供问答入口的输入护栏。

# 核心类型

  - AdviceClassifier：基于固定短语表判定问题是否在寻求个人/实践建议。
    命中后编排器直接返回"只描述、不指导"的固定回答，不调用任何提供者。
  - QuestionLengthValidator：拒绝空问题与超长问题。
  - ValidatorChain：按优先级顺序执行多个 Validator 并聚合结果。
    NewQuestionGuard 构造 /api/ask 与 ask 命令共用的 fail-fast 校验链。

# 使用方式

	c := guardrails.NewAdviceClassifier(nil)
	if c.Classify(question).Flagged() {
		// 返回固定回答
	}

短语匹配是纯子串匹配，已知会误伤（例如 "what should" 出现在陈述句里），
这是有意接受的取舍。
*/
package guardrails
