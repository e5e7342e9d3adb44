/*
包 orchestrator 把一条自由文本任务映射到至多一次方法调用。

# 流程

每个任务只走一遍:

 1. 用能力目录渲染规划提示词, 交给补全边界
 2. 从补全文本中提取第一个合法的 {"tool": ..., "parameters": {...}} 对象
    (优先 ```json 代码块, 其次按文本顺序的裸对象)
 3. 有工具调用时交给执行器执行一次, 再用第二次补全生成最终回答;
    第二次补全失败时退化为 "工具名: 结果" 文本
 4. 没有工具调用时, 第一次补全文本即最终回答

规划阶段的补全失败以 types.ErrPlanner 返回, 任务随之失败。
*/
package orchestrator
